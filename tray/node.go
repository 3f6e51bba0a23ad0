package tray

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/native-interop/callback"
	"github.com/wippyai/native-interop/catalog"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/handle"
)

// env is shared by every node of one tray.
type env struct {
	s     *catalog.Surface
	cb    *callback.Manager
	reg   *handle.Registry
	p     *procs
	click callback.Signature
}

// binding is a callback slot together with the native call that points
// the library away from it.
type binding struct {
	slot   *callback.Slot
	detach func(ctx context.Context) error
}

// node is one resource in the tree. Children are destroyed before the
// node's own slots, and slots before its handle.
type node struct {
	h         handle.Handle
	parent    *node
	children  []*node
	slots     map[string]binding
	kind      string
	destroyed bool
	mu        sync.Mutex
}

func newNode(kind string, h handle.Handle, parent *node) *node {
	n := &node{
		kind:   kind,
		h:      h,
		parent: parent,
		slots:  make(map[string]binding),
	}
	if parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, n)
		parent.mu.Unlock()
	}
	return n
}

func (n *node) check() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.destroyed {
		return errors.UseAfterDestroy(errors.PhaseResource, n.kind)
	}
	return nil
}

func (n *node) isDestroyed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.destroyed
}

func (n *node) orphan(c *node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, x := range n.children {
		if x == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

// unbind detaches and uninstalls the slot under key, if any.
func (n *node) unbind(ctx context.Context, cb *callback.Manager, key string) error {
	n.mu.Lock()
	b, ok := n.slots[key]
	delete(n.slots, key)
	n.mu.Unlock()
	if !ok {
		return nil
	}
	return b.drop(ctx, cb)
}

func (n *node) bind(key string, b binding) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.destroyed {
		return errors.UseAfterDestroy(errors.PhaseResource, n.kind)
	}
	n.slots[key] = b
	return nil
}

func (b binding) drop(ctx context.Context, cb *callback.Manager) error {
	var errs []error
	if b.detach != nil {
		if err := b.detach(ctx); err != nil {
			Logger().Debug("detach callback", zap.Uintptr("key", b.slot.Key), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if err := cb.Uninstall(ctx, b.slot); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}

// destroy tears the subtree down. release frees the node's own handle and
// is nil for nodes the native library frees together with an ancestor.
func (n *node) destroy(ctx context.Context, cb *callback.Manager, release func(context.Context) error) error {
	n.mu.Lock()
	if n.destroyed {
		n.mu.Unlock()
		return nil
	}
	n.destroyed = true
	kids := n.children
	slots := n.slots
	n.children = nil
	n.slots = nil
	n.mu.Unlock()

	var errs []error
	for i := len(kids) - 1; i >= 0; i-- {
		if err := kids[i].destroy(ctx, cb, nil); err != nil {
			errs = append(errs, err)
		}
	}

	keys := make([]string, 0, len(slots))
	for k := range slots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := slots[k].drop(ctx, cb); err != nil {
			errs = append(errs, err)
		}
	}

	if release != nil {
		if err := release(ctx); err != nil {
			errs = append(errs, err)
		}
		if n.parent != nil {
			n.parent.orphan(n)
		}
	}

	Logger().Debug("destroyed",
		zap.String("kind", n.kind),
		zap.Stringer("handle", n.h),
		zap.Int("children", len(kids)),
		zap.Int("slots", len(slots)))
	return stderrors.Join(errs...)
}
