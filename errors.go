package probe

import (
	"errors"
	"fmt"
)

// Kernel and registry errors.
// Use errors.Is to check for these as they may be wrapped with context.
var (
	// ErrPluginExists is returned when registering a plugin whose name is
	// already taken. The existing plugin stays installed.
	ErrPluginExists = errors.New("plugin already registered with this name")

	// ErrPluginNotFound is returned by PluginAs for an unknown plugin name.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrKernelDestroyed is returned when registering on a destroyed kernel.
	// A destroyed kernel is terminal: emits are dropped and registration
	// fails permanently.
	ErrKernelDestroyed = errors.New("kernel is destroyed")

	// ErrTypeMismatch is returned by PluginAs when the registered plugin
	// does not implement the requested capability type.
	ErrTypeMismatch = errors.New("plugin type mismatch")

	// ErrInvalidEventType is returned when an event carries a type outside
	// the closed set.
	ErrInvalidEventType = errors.New("invalid event type")
)

// InstallError wraps a failure from Plugin.Install. The kernel rolls the
// plugin back out of the registry before returning it.
type InstallError struct {
	Plugin string
	Err    error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install plugin %q: %v", e.Plugin, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}
