package app

import (
	"fmt"
	"reflect"

	"github.com/vk/conftree/internal/adapt"
	"github.com/vk/conftree/internal/meta"
)

// Protocol is the wire protocol a connection speaks.
type Protocol string

// Supported connection protocols.
const (
	ProtocolDICOM Protocol = "dicom"
	ProtocolHL7   Protocol = "hl7"
	ProtocolWeb   Protocol = "web"
)

// Connection is a network endpoint a device listens on. Connections are
// referenced from multiple places in a device graph, so they carry an
// identity key.
type Connection struct {
	UUID     string   `conf:",identity"`
	Name     string   `conf:"name" label:"Connection name"`
	Hostname string   `conf:"hostname" label:"Hostname" order:"1" group:"Network"`
	Port     int      `conf:"port" label:"Port" default:"104" order:"2" group:"Network"`
	Protocol Protocol `conf:"protocol" label:"Protocol" default:"dicom" group:"Network"`
	TLS      bool     `conf:"tls" label:"Use TLS" default:"false" group:"Security"`
}

// Service is one application-level service offered by a device, bound to
// one of the device's connections.
type Service struct {
	Title      string      `conf:"title" label:"Service title"`
	Connection *Connection `conf:"connection" desc:"Endpoint this service is reachable on"`
	Enabled    bool        `conf:"enabled" default:"true"`
}

// Device is the root configuration object: a named unit with its
// connections and the services bound to them.
type Device struct {
	Name       string            `conf:"deviceName" label:"Device name" desc:"Unique name of this device"`
	Installed  bool              `conf:"installed" default:"true"`
	Issuer     string            `conf:"issuer"`
	Services   []Service         `conf:"services"`
	Properties map[string]string `conf:"properties" desc:"Free-form vendor properties"`
}

// NewRuntime assembles the conversion runtime with the built-in
// configuration classes registered.
func NewRuntime() (*adapt.Runtime, error) {
	classes := meta.NewRegistry()
	for _, t := range []reflect.Type{
		reflect.TypeOf(Connection{}),
		reflect.TypeOf(Service{}),
		reflect.TypeOf(Device{}),
	} {
		if _, err := classes.RegisterType(t); err != nil {
			return nil, fmt.Errorf("app: registering %s: %w", t, err)
		}
	}

	rt := adapt.NewRuntime(classes)
	if err := rt.RegisterEnum(reflect.TypeOf(Protocol("")),
		string(ProtocolDICOM), string(ProtocolHL7), string(ProtocolWeb)); err != nil {
		return nil, err
	}
	return rt, nil
}
