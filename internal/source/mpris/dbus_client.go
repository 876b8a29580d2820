package mpris

import (
	"github.com/godbus/dbus/v5"
)

// DBusClient is the subset of the session bus used by the MPRIS source.
//
//go:generate mockgen -destination=mocks/dbus_client_mock.go -package=mocks github.com/genricoloni/nowink/internal/source/mpris DBusClient
type DBusClient interface {
	Close() error

	AddMatchSignal(options ...dbus.MatchOption) error

	// Signal registers a channel to receive D-Bus signals
	Signal(ch chan<- *dbus.Signal)

	ListNames() ([]string, error)

	// GetNameOwner returns the unique name (:1.45) owning a well-known name
	GetNameOwner(name string) (string, error)

	// GetProperty reads prop (e.g. org.mpris.MediaPlayer2.Player.Metadata)
	// from the object at path on the given bus name
	GetProperty(player, path, prop string) (dbus.Variant, error)
}

// sessionBus is the godbus implementation
type sessionBus struct {
	conn *dbus.Conn
}

// ConnectSessionBus opens a private connection to the user's session bus
func ConnectSessionBus() (DBusClient, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return &sessionBus{conn: conn}, nil
}

func (c *sessionBus) Close() error {
	return c.conn.Close()
}

func (c *sessionBus) AddMatchSignal(options ...dbus.MatchOption) error {
	return c.conn.AddMatchSignal(options...)
}

func (c *sessionBus) Signal(ch chan<- *dbus.Signal) {
	c.conn.Signal(ch)
}

func (c *sessionBus) ListNames() ([]string, error) {
	var names []string
	err := c.conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	return names, err
}

func (c *sessionBus) GetNameOwner(name string) (string, error) {
	var owner string
	err := c.conn.BusObject().Call("org.freedesktop.DBus.GetNameOwner", 0, name).Store(&owner)
	return owner, err
}

func (c *sessionBus) GetProperty(player, path, prop string) (dbus.Variant, error) {
	return c.conn.Object(player, dbus.ObjectPath(path)).GetProperty(prop)
}
