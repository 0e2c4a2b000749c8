package cache

import (
	"sync"

	"github.com/rigado/bleosc"
)

var _ bleosc.NameCache = (*Names)(nil)

// Names maps device addresses to the last local name seen for them. Names
// live for the life of the process.
type Names struct {
	lock  sync.RWMutex
	names map[string]string
}

func New() *Names {
	return &Names{names: map[string]string{}}
}

func (n *Names) Store(addr, name string) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.names[addr] = name
	return nil
}

func (n *Names) Load(addr string) (string, bool) {
	n.lock.RLock()
	defer n.lock.RUnlock()

	name, ok := n.names[addr]
	return name, ok
}

func (n *Names) Clear() error {
	n.lock.Lock()
	defer n.lock.Unlock()

	n.names = map[string]string{}
	return nil
}
