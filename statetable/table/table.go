// Package table implements the table instance: columns, rows and cells, the render pass and the
// redraw protocol.
//
// Every step of a render pass is a declared extension point on the table's advice target, so
// roles can add controls, rewrite rows or append post-render steps without touching this
// package. Rows and cells are ephemeral hosts with their own targets, created fresh on every
// pass and decorated by row and column traits.
package table

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pjfl/statetable/statetable"
	"github.com/pjfl/statetable/statetable/advice"
	"github.com/pjfl/statetable/statetable/markup"
	"github.com/pjfl/statetable/statetable/resultset"
	"github.com/pjfl/statetable/statetable/trait"
)

// Extension points declared on the table's advice target.
const (
	OpRender               = "render"
	OpCreateColumn         = "createColumn"
	OpCreateRow            = "createRow"
	OpRenderHeader         = "renderHeader"
	OpRenderTopControls    = "renderTopControls"
	OpRenderBottomControls = "renderBottomControls"
	OpAppendRow            = "appendRow"
	OpRenderNoData         = "renderNoData"
)

// Trait argument keys.
const (
	ArgRoleName   = "role"
	ArgRoleConfig = "config"
	ArgColumn     = "column"
)

// Render slots a role may attach its controls to.
const (
	LocationTop    = "top"
	LocationBottom = "bottom"
)

const (
	logMsgRenderCompleted = "table rendered"
	logMsgRenderFailed    = "table render failed"
	logMsgRenderSkipped   = "render superseded by a newer state"
	logMsgRowTraitFailed  = "row trait application failed"
	logAttrError          = "error"
	logAttrTable          = "table"
	logAttrRowCount       = "row_count"
)

// RowInsert is the argument of the appendRow operation.
type RowInsert struct {
	Body    *markup.Element
	Row     *Row
	Element *markup.Element
}

// Table is one table instance. Its identity is the configuration name.
type Table struct {
	cfg              statetable.Config
	target           *advice.Target
	rs               *resultset.Resultset
	roles            *trait.Registry[*Table]
	cellTraits       *trait.Registry[*Cell]
	rowTraits        *trait.Registry[*Row]
	resultsetOptions []resultset.Option
	logger           statetable.Logger
	contextualLogger statetable.ContextualLogger

	render               *advice.Point[context.Context, error]
	createColumn         *advice.Point[statetable.ColumnConfig, *Column]
	createRow            *advice.Point[statetable.Record, *Row]
	renderHeader         *advice.Point[*markup.Element, *markup.Element]
	renderTopControls    *advice.Point[*markup.Element, *markup.Element]
	renderBottomControls *advice.Point[*markup.Element, *markup.Element]
	renderNoData         *advice.Point[*markup.Element, *markup.Element]
	appendRow            *advice.Point[RowInsert, *markup.Element]

	mu       sync.RWMutex
	columns  []*Column
	view     *markup.Element
	rowCount int
	// fetch epochs of the batches behind view and rowCount
	renderedEpoch uint64
	countedEpoch  uint64
	roleState     map[string]any
}

// New validates cfg, builds the resultset, applies the configured roles and creates the
// columns. Unknown roles or traits fail here.
func New(cfg statetable.Config, options ...Option) (*Table, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Table{
		cfg:        cfg,
		target:     advice.NewTarget(cfg.Name),
		roles:      trait.NewRegistry[*Table]("role"),
		cellTraits: trait.NewRegistry[*Cell]("cell trait"),
		rowTraits:  trait.NewRegistry[*Row]("row trait"),
		roleState:  make(map[string]any),
	}

	for _, option := range options {
		if err := option(t); err != nil {
			return nil, err
		}
	}

	if err := t.declare(); err != nil {
		return nil, err
	}

	rsOptions := []resultset.Option{
		resultset.WithName(cfg.Name),
		resultset.WithAdvice(t.target),
		resultset.WithPaging(cfg.Properties.EnablePaging),
		resultset.WithMaxPageSize(cfg.Properties.MaxPageSize),
		resultset.WithPageSize(min(cfg.Properties.PageSize, cfg.Properties.MaxPageSize)),
	}

	if cfg.Properties.SortColumn != "" {
		rsOptions = append(rsOptions, resultset.WithInitialState(map[string]any{
			resultset.KeySortColumn: cfg.Properties.SortColumn,
			resultset.KeySortDesc:   cfg.Properties.SortDesc,
		}))
	}

	rs, err := resultset.New(cfg.DataURL, append(rsOptions, t.resultsetOptions...)...)
	if err != nil {
		return nil, err
	}

	t.rs = rs
	rs.BindRenderer(t.Render)

	if err := t.initialise(); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *Table) declare() error {
	var err error
	errs := make([]error, 0, 8)

	t.render, err = advice.Declare(t.target, OpRender, t.baseRender)
	errs = append(errs, err)
	t.createColumn, err = advice.Declare(t.target, OpCreateColumn, t.baseCreateColumn)
	errs = append(errs, err)
	t.createRow, err = advice.Declare(t.target, OpCreateRow, t.baseCreateRow)
	errs = append(errs, err)
	t.renderHeader, err = advice.Declare(t.target, OpRenderHeader, t.baseRenderHeader)
	errs = append(errs, err)
	t.renderTopControls, err = advice.Declare(t.target, OpRenderTopControls, passThrough)
	errs = append(errs, err)
	t.renderBottomControls, err = advice.Declare(t.target, OpRenderBottomControls, passThrough)
	errs = append(errs, err)
	t.renderNoData, err = advice.Declare(t.target, OpRenderNoData, t.baseRenderNoData)
	errs = append(errs, err)
	t.appendRow, err = advice.Declare(t.target, OpAppendRow, baseAppendRow)
	errs = append(errs, err)

	return errors.Join(errs...)
}

func passThrough(e *markup.Element) *markup.Element {
	return e
}

// initialise applies the "before" roles, creates the columns, then applies the remaining roles.
func (t *Table) initialise() error {
	var before, after []string
	for _, name := range t.cfg.RoleNames() {
		if t.cfg.Roles[name].Apply.Before {
			before = append(before, name)
		} else {
			after = append(after, name)
		}
	}

	if err := t.applyRoles(before); err != nil {
		return err
	}

	columns := make([]*Column, 0, len(t.cfg.Columns))
	for _, columnConfig := range t.cfg.Columns {
		column := t.createColumn.Call(columnConfig)
		if column == nil {
			continue
		}

		for _, name := range column.config.Traits {
			if !t.cellTraits.Has(name) {
				return &statetable.UnknownCapabilityError{Kind: t.cellTraits.Kind(), Name: name}
			}
		}

		columns = append(columns, column)
	}

	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].position < columns[j].position
	})

	for _, name := range t.cfg.RowTraits {
		if !t.rowTraits.Has(name) {
			return &statetable.UnknownCapabilityError{Kind: t.rowTraits.Kind(), Name: name}
		}
	}

	t.mu.Lock()
	t.columns = columns
	t.mu.Unlock()

	return t.applyRoles(after)
}

func (t *Table) applyRoles(names []string) error {
	for _, name := range names {
		args := trait.Args{ArgRoleName: name, ArgRoleConfig: t.cfg.Roles[name]}
		if err := trait.Apply(t, t.roles, []string{name}, args); err != nil {
			return err
		}
	}

	return nil
}

// Reinitialise restores every extension point to its base and applies the configuration
// again. The query state survives; role state and column moves do not.
func (t *Table) Reinitialise() error {
	t.target.Reset()

	t.mu.Lock()
	t.roleState = make(map[string]any)
	t.mu.Unlock()

	return t.initialise()
}

// Advice returns the table's advice target.
func (t *Table) Advice() *advice.Target {
	return t.target
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.cfg.Name
}

// Config returns the table configuration.
func (t *Table) Config() statetable.Config {
	return t.cfg
}

// Resultset returns the table's resultset.
func (t *Table) Resultset() *resultset.Resultset {
	return t.rs
}

// HasRole reports whether the named role is configured.
func (t *Table) HasRole(name string) bool {
	_, exists := t.cfg.Roles[name]
	return exists
}

// Columns returns the columns in display order, hidden ones included.
func (t *Table) Columns() []*Column {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return append([]*Column(nil), t.columns...)
}

// DisplayedColumns returns the displayed columns in display order.
func (t *Table) DisplayedColumns() []*Column {
	t.mu.RLock()
	defer t.mu.RUnlock()

	displayed := make([]*Column, 0, len(t.columns))
	for _, column := range t.columns {
		if column.Displayed() {
			displayed = append(displayed, column)
		}
	}

	return displayed
}

// Column returns the named column.
func (t *Table) Column(name string) (*Column, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, column := range t.columns {
		if column.name == name {
			return column, true
		}
	}

	return nil, false
}

// MoveColumn moves the named column to position (zero based, clamped). Column identity is
// unchanged; only the sequence is.
func (t *Table) MoveColumn(name string, position int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	from := -1
	for i, column := range t.columns {
		if column.name == name {
			from = i
			break
		}
	}

	if from < 0 {
		return fmt.Errorf("%w: %q", statetable.ErrUnknownColumn, name)
	}

	position = max(0, min(position, len(t.columns)-1))

	column := t.columns[from]
	reordered := append(append([]*Column(nil), t.columns[:from]...), t.columns[from+1:]...)
	reordered = append(reordered[:position], append([]*Column{column}, reordered[position:]...)...)

	for i, c := range reordered {
		c.position = i
	}
	t.columns = reordered

	return nil
}

// RoleState returns the per-instance state a role stored under key.
func (t *Table) RoleState(key string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	value, exists := t.roleState[key]
	return value, exists
}

// SetRoleState stores per-instance role state under key.
func (t *Table) SetRoleState(key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.roleState[key] = value
}

// View returns the last successfully rendered tree, or nil before the first render.
func (t *Table) View() *markup.Element {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.view
}

// ModifyView runs fn on the current view while holding the view lock. Post-render steps use it.
func (t *Table) ModifyView(fn func(view *markup.Element)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.view != nil {
		fn(t.view)
	}
}

// RowCount returns the number of rows of the last successful render.
func (t *Table) RowCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.rowCount
}

// Render runs the advised render operation.
func (t *Table) Render(ctx context.Context) error {
	return t.render.Call(ctx)
}

// Redraw resets the record cursor and renders, fetching the current state.
func (t *Table) Redraw(ctx context.Context) error {
	return t.rs.Redraw(ctx)
}

// Search applies a batch of state writes, then redraws once.
func (t *Table) Search(ctx context.Context, options resultset.SearchOptions) error {
	if err := t.rs.Search(options); err != nil {
		return err
	}

	return t.Redraw(ctx)
}

func (t *Table) logOperation(ctx context.Context, message string, args ...any) {
	allArgs := append([]any{logAttrTable, t.cfg.Name}, args...)

	if t.logger != nil {
		t.logger.Debug(message, allArgs...)
	}

	if t.contextualLogger != nil {
		t.contextualLogger.DebugContext(ctx, message, allArgs...)
	}
}

func (t *Table) logError(ctx context.Context, message string, err error) {
	args := []any{logAttrError, err.Error(), logAttrTable, t.cfg.Name}

	if t.logger != nil {
		t.logger.Error(message, args...)
	}

	if t.contextualLogger != nil {
		t.contextualLogger.ErrorContext(ctx, message, args...)
	}
}
