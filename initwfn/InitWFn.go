// Package initwfn implements functionality to wrap Gorgonia InitWFn
// so that they can be JSON serialized into configuration files.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available
type Type string

// Available InitWFn types
const (
	GlorotU Type = "GlorotU"
	GlorotN Type = "GlorotN"
	Uniform Type = "Uniform"
	Zeroes  Type = "Zeroes"
)

// InitWFn wraps Gorgonia InitWFn so that they can be JSON marshalled
// and unmarshalled.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) *InitWFn {
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (w *InitWFn) InitWFn() G.InitWFn {
	return w.initWFn
}

// String implements the fmt.Stringer interface
func (w *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", w.Type, w.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (w *InitWFn) UnmarshalJSON(data []byte) error {
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	var typeName Type
	if err := json.Unmarshal(m["Type"], &typeName); err != nil {
		return err
	}

	types := map[Type]reflect.Type{
		GlorotU: reflect.TypeOf(GlorotUConfig{}),
		GlorotN: reflect.TypeOf(GlorotNConfig{}),
		Uniform: reflect.TypeOf(UniformConfig{}),
		Zeroes:  reflect.TypeOf(ZeroesConfig{}),
	}
	ty, ok := types[typeName]
	if !ok {
		return fmt.Errorf("unmarshaljson: no such InitWFn type %v", typeName)
	}

	config := reflect.New(ty).Interface().(Config)
	if err := json.Unmarshal(m["Config"], config); err != nil {
		return err
	}

	w.Type = typeName
	w.Config = reflect.ValueOf(config).Elem().Interface().(Config)
	w.initWFn = w.Config.Create()

	return nil
}

// Config implements a Gorgonia InitWFn configuration and can be used
// to create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}
