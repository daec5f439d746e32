// Package app holds the todo controller: the in-memory copy of the backend
// collection, the view state (filter, search, selection), and one method per
// user action.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/filter"
	"github.com/Makepad-fr/tada/internal/model"
)

var (
	// ErrEmptyText is returned by Add for blank input; nothing is sent.
	ErrEmptyText = errors.New("todo text is empty")
	// ErrNotFound is returned for an id that is not in the local collection.
	ErrNotFound = errors.New("todo not found")
)

// Backend is the subset of the API client the controller needs.
type Backend interface {
	List(ctx context.Context, user string) ([]model.Todo, error)
	Create(ctx context.Context, in model.NewTodo) (model.Todo, error)
	Update(ctx context.Context, id model.ID, p model.Patch) error
	Delete(ctx context.Context, id model.ID) error
}

// Confirmer asks the user before bulk deletes.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// State is everything the controller owns.
type State struct {
	Todos    []model.Todo
	Filter   filter.Status
	Query    string
	Selected map[model.ID]bool
}

// Controller serializes state changes behind a mutex. Network calls run
// without the lock held; results are applied afterwards.
type Controller struct {
	backend Backend
	user    string
	notify  Notifier
	log     *log.Logger
	now     func() time.Time

	mu    sync.Mutex
	state State
}

// Option tunes a Controller.
type Option func(*Controller)

// WithNotifier routes notices somewhere visible.
func WithNotifier(n Notifier) Option { return func(c *Controller) { c.notify = n } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(c *Controller) { c.log = l } }

// WithClock overrides time.Now, for due-date math in tests.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// New returns a controller for user over backend.
func New(backend Backend, user string, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		user:    user,
		notify:  NopNotifier{},
		log:     log.New(io.Discard),
		now:     time.Now,
		state:   State{Filter: filter.All, Selected: map[model.ID]bool{}},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// User is the identity requests are scoped to.
func (c *Controller) User() string { return c.user }

// -------------- sync --------------

// Load replaces the collection with the backend's. On failure the previous
// collection is kept.
func (c *Controller) Load(ctx context.Context) error {
	todos, err := c.backend.List(ctx, c.user)
	if err != nil {
		c.fail("Failed to load todos", err)
		return fmt.Errorf("load: %w", err)
	}

	c.mu.Lock()
	c.state.Todos = todos
	present := make(map[model.ID]bool, len(todos))
	for _, t := range todos {
		present[t.ID] = true
	}
	for id := range c.state.Selected {
		if !present[id] {
			delete(c.state.Selected, id)
		}
	}
	c.mu.Unlock()

	c.log.Debug("loaded todos", "count", len(todos))
	return nil
}

// -------------- mutations --------------

// Add creates a todo. Blank text is rejected before any request.
func (c *Controller) Add(ctx context.Context, in model.NewTodo) (model.Todo, error) {
	in = in.WithDefaults()
	if in.Text == "" {
		return model.Todo{}, ErrEmptyText
	}
	in.User = c.user

	created, err := c.backend.Create(ctx, in)
	if err != nil {
		c.fail("Failed to add todo", err)
		return model.Todo{}, fmt.Errorf("add: %w", err)
	}
	if created.ID == "" {
		// No usable record in the response; resync instead of inventing an id.
		if err := c.Load(ctx); err != nil {
			return model.Todo{}, err
		}
		c.success("Todo added")
		return model.Todo{}, nil
	}

	c.mu.Lock()
	c.state.Todos = append(c.state.Todos, created)
	c.mu.Unlock()
	c.success("Todo added")
	return created, nil
}

// ToggleComplete flips the completed flag of one todo.
func (c *Controller) ToggleComplete(ctx context.Context, id model.ID) error {
	t, ok := c.Get(id)
	if !ok {
		return fmt.Errorf("toggle %s: %w", id, ErrNotFound)
	}
	done := !t.Completed
	if err := c.update(ctx, id, model.Patch{Completed: &done}); err != nil {
		return fmt.Errorf("toggle %s: %w", id, err)
	}
	return nil
}

// Update sends a partial update and mirrors it locally.
func (c *Controller) Update(ctx context.Context, id model.ID, p model.Patch) error {
	if _, ok := c.Get(id); !ok {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if p.Text != nil {
		text := strings.TrimSpace(*p.Text)
		if text == "" {
			return ErrEmptyText
		}
		p.Text = &text
	}
	if p.Empty() {
		return nil
	}
	if err := c.update(ctx, id, p); err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	c.success("Todo updated")
	return nil
}

func (c *Controller) update(ctx context.Context, id model.ID, p model.Patch) error {
	if err := c.backend.Update(ctx, id, p); err != nil {
		c.fail("Failed to update todo", err)
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		p.Apply(&c.state.Todos[i])
	}
	return nil
}

// Delete removes one todo. The local copy is only dropped once the backend
// accepted the delete.
func (c *Controller) Delete(ctx context.Context, id model.ID) error {
	if err := c.deleteOne(ctx, id); err != nil {
		return err
	}
	c.success("Todo deleted")
	return nil
}

func (c *Controller) deleteOne(ctx context.Context, id model.ID) error {
	if _, ok := c.Get(id); !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	if err := c.backend.Delete(ctx, id); err != nil {
		c.fail("Failed to delete todo", err)
		return fmt.Errorf("delete %s: %w", id, err)
	}
	c.mu.Lock()
	if i := c.indexLocked(id); i >= 0 {
		c.state.Todos = append(c.state.Todos[:i:i], c.state.Todos[i+1:]...)
	}
	delete(c.state.Selected, id)
	c.mu.Unlock()
	return nil
}

// BulkResult summarizes DeleteSelected and ClearCompleted.
type BulkResult struct {
	Matched   int
	Deleted   int
	Cancelled bool
}

// DeleteSelected deletes every selected todo after confirmation.
func (c *Controller) DeleteSelected(ctx context.Context, confirm Confirmer) (BulkResult, error) {
	ids := c.Selected()
	return c.bulkDelete(ctx, ids, confirm, fmt.Sprintf("Delete %d selected todo(s)?", len(ids)))
}

// ClearCompleted deletes every completed todo after confirmation.
func (c *Controller) ClearCompleted(ctx context.Context, confirm Confirmer) (BulkResult, error) {
	c.mu.Lock()
	var ids []model.ID
	for _, t := range c.state.Todos {
		if t.Completed {
			ids = append(ids, t.ID)
		}
	}
	c.mu.Unlock()
	return c.bulkDelete(ctx, ids, confirm, fmt.Sprintf("Delete %d completed todo(s)?", len(ids)))
}

// bulkDelete issues one delete at a time, in order, and keeps going past
// failures.
func (c *Controller) bulkDelete(ctx context.Context, ids []model.ID, confirm Confirmer, prompt string) (BulkResult, error) {
	res := BulkResult{Matched: len(ids)}
	if len(ids) == 0 {
		return res, nil
	}
	if confirm != nil && !confirm.Confirm(prompt) {
		res.Cancelled = true
		return res, nil
	}

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := c.deleteOne(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		res.Deleted++
	}
	if res.Deleted > 0 {
		c.success(fmt.Sprintf("Deleted %d of %d todo(s)", res.Deleted, res.Matched))
	}
	return res, errors.Join(errs...)
}

// -------------- view state (local only) --------------

// SetFilter changes the status filter.
func (c *Controller) SetFilter(s filter.Status) {
	c.mu.Lock()
	c.state.Filter = s
	c.mu.Unlock()
}

// CycleFilter moves to the next status filter and returns it.
func (c *Controller) CycleFilter() filter.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Filter = c.state.Filter.Next()
	return c.state.Filter
}

// Search sets the text query.
func (c *Controller) Search(query string) {
	c.mu.Lock()
	c.state.Query = query
	c.mu.Unlock()
}

// ToggleSelect flips the selection of one id and reports the new state.
func (c *Controller) ToggleSelect(id model.ID) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexLocked(id) < 0 {
		return false, fmt.Errorf("select %s: %w", id, ErrNotFound)
	}
	if c.state.Selected[id] {
		delete(c.state.Selected, id)
		return false, nil
	}
	c.state.Selected[id] = true
	return true, nil
}

// SelectAll selects every todo in the current filtered view.
func (c *Controller) SelectAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	visible := filter.Apply(c.state.Todos, c.state.Filter, c.state.Query)
	for _, t := range visible {
		c.state.Selected[t.ID] = true
	}
	return len(visible)
}

// ClearSelection deselects every todo in the current filtered view.
// Selected todos hidden by the filter stay selected.
func (c *Controller) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range filter.Apply(c.state.Todos, c.state.Filter, c.state.Query) {
		delete(c.state.Selected, t.ID)
	}
}

// IsSelected reports whether id is selected.
func (c *Controller) IsSelected(id model.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Selected[id]
}

// Selected returns selected ids in collection order.
func (c *Controller) Selected() []model.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.ID
	for _, t := range c.state.Todos {
		if c.state.Selected[t.ID] {
			out = append(out, t.ID)
		}
	}
	return out
}

// -------------- reads --------------

// Get returns a copy of one todo.
func (c *Controller) Get(id model.ID) (model.Todo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		return c.state.Todos[i], true
	}
	return model.Todo{}, false
}

// Todos returns a copy of the whole collection in backend order.
func (c *Controller) Todos() []model.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Todo(nil), c.state.Todos...)
}

// Snapshot copies the full state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	sel := make(map[model.ID]bool, len(c.state.Selected))
	for id := range c.state.Selected {
		sel[id] = true
	}
	return State{
		Todos:    append([]model.Todo(nil), c.state.Todos...),
		Filter:   c.state.Filter,
		Query:    c.state.Query,
		Selected: sel,
	}
}

// View projects the current state.
func (c *Controller) View() View {
	return Project(c.Snapshot(), model.NewDate(c.now()))
}

func (c *Controller) indexLocked(id model.ID) int {
	for i, t := range c.state.Todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// -------------- notices --------------

func (c *Controller) success(text string) {
	c.log.Debug(text)
	c.notify.Notify(Notice{Kind: NoticeSuccess, Text: text, At: c.now()})
}

func (c *Controller) fail(text string, err error) {
	c.log.Info(text, "err", err)
	c.notify.Notify(Notice{Kind: NoticeError, Text: text, Err: err, At: c.now()})
}
