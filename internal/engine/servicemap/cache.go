// # internal/engine/servicemap/cache.go
package servicemap

import (
	"container/list"
	"sync"
	"time"

	"cssnav/internal/engine/service"
)

// serviceCache holds services parsed on demand for files outside the
// tracked set. It is bounded; the least recently used service goes first.
// An entry is only valid for the stamp (disk mtime or editor version) it
// was parsed from.
type serviceCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List // front = most recently used
}

type cachedService struct {
	uri     string
	stamp   stamp
	service *service.Service
}

// stamp identifies one content state of a file.
type stamp struct {
	modTime time.Time
	size    int64
	version int32
}

func newServiceCache(capacity int) *serviceCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &serviceCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// get returns the service of uri when it was parsed from st.
func (c *serviceCache) get(uri string, st stamp) (*service.Service, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[uri]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cachedService)
	if entry.stamp != st {
		c.order.Remove(el)
		delete(c.items, uri)
		return nil, false
	}
	c.order.MoveToFront(el)
	return entry.service, true
}

func (c *serviceCache) put(uri string, st stamp, svc *service.Service) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[uri]; ok {
		c.order.MoveToFront(el)
		entry := el.Value.(*cachedService)
		entry.stamp = st
		entry.service = svc
		return
	}
	if c.order.Len() >= c.capacity {
		if back := c.order.Back(); back != nil {
			c.order.Remove(back)
			delete(c.items, back.Value.(*cachedService).uri)
		}
	}
	c.items[uri] = c.order.PushFront(&cachedService{uri: uri, stamp: st, service: svc})
}

func (c *serviceCache) evict(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[uri]; ok {
		c.order.Remove(el)
		delete(c.items, uri)
	}
}

func (c *serviceCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *serviceCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}
