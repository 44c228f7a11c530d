package viewstate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"crm-contacts/internal/models"
	"crm-contacts/internal/utils"

	"go.uber.org/zap"
)

var (
	ErrNoPendingDelete       = errors.New("no contact pending deletion")
	ErrBulkDeleteUnsupported = errors.New("bulk delete is not supported")
	ErrViewClosed            = errors.New("view is closed")
)

// HeaderCell is one rendered column header.
type HeaderCell struct {
	ID        ColumnID  `json:"id"`
	Label     string    `json:"label"`
	Sortable  bool      `json:"sortable"`
	Sorted    Direction `json:"sorted,omitempty"`
	DragClass string    `json:"drag_class,omitempty"`
}

type Row struct {
	ID       string         `json:"id"`
	Selected bool           `json:"selected"`
	Cells    []string       `json:"cells"`
	Contact  models.Contact `json:"contact"`
}

// Table is the rendered form of a view. It holds no state of its own.
type Table struct {
	Columns       []HeaderCell `json:"columns"`
	Rows          []Row        `json:"rows"`
	Total         int          `json:"total"`
	SelectedCount int          `json:"selected_count"`
	AllSelected   bool         `json:"all_selected"`
	Loading       bool         `json:"loading"`
	Refetching    bool         `json:"refetching"`
	PendingDelete string       `json:"pending_delete,omitempty"`
	Error         string       `json:"error,omitempty"`
}

// ContactsView owns one ephemeral view state over a gateway. Gateway
// errors are kept as inline error text; responses that arrive after Close
// are dropped.
type ContactsView struct {
	gateway Gateway
	cache   *QueryCache
	engine  *Engine
	syncer  *Synchronizer
	logger  *zap.Logger

	mu              sync.Mutex
	search          string
	groupID         string
	period          DatePeriod
	sources         []models.Source
	sort            SortSpec
	columns         *ColumnModel
	selection       *Selection
	contacts        []models.Contact
	groupsByContact map[string][]models.Group
	loaded          bool
	loading         bool
	refetching      bool
	err             string
	pendingDelete   string
	closed          bool
	unsubscribe     func()
}

type ViewOption func(*ContactsView)

func WithEngine(e *Engine) ViewOption {
	return func(v *ContactsView) { v.engine = e }
}

func WithViewLogger(logger *zap.Logger) ViewOption {
	return func(v *ContactsView) { v.logger = logger }
}

func WithSynchronizer(s *Synchronizer) ViewOption {
	return func(v *ContactsView) { v.syncer = s }
}

func WithColumns(m *ColumnModel) ViewOption {
	return func(v *ContactsView) { v.columns = m }
}

// NewContactsView starts a view with default state. The cache may be shared
// between views of the same tenant.
func NewContactsView(gateway Gateway, cache *QueryCache, opts ...ViewOption) *ContactsView {
	v := &ContactsView{
		gateway:         gateway,
		cache:           cache,
		logger:          zap.NewNop(),
		period:          PeriodAll,
		sort:            DefaultSort(),
		columns:         DefaultColumnModel(),
		selection:       NewSelection(),
		groupsByContact: make(map[string][]models.Group),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.engine == nil {
		v.engine = NewEngine()
	}
	if v.syncer == nil {
		v.syncer = NewSynchronizer(gateway, cache, WithSyncLogger(v.logger))
	}
	v.unsubscribe = cache.OnChange(v.onCacheChange)
	return v
}

func (v *ContactsView) listRequest() models.ContactListRequest {
	return models.ContactListRequest{GroupID: v.groupID}
}

// Load fetches the contact list. Only the first load reports Loading; later
// loads return the previous rows while a refetch runs.
func (v *ContactsView) Load(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	req := v.listRequest()
	if !v.loaded {
		v.loading = true
	}
	showGroups := v.columns.IsVisible(ColGroups)
	v.mu.Unlock()

	contacts, refetching, err := Query(ctx, v.cache, ContactsListKey(req), func(ctx context.Context) ([]models.Contact, error) {
		return v.gateway.ListContacts(ctx, req)
	})

	var groups map[string][]models.Group
	if err == nil && showGroups {
		groups = v.fetchGroups(ctx, contacts)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return ErrViewClosed
	}
	v.loading = false
	if err != nil {
		v.err = fmt.Sprintf("failed to load contacts: %v", err)
		return fmt.Errorf("load contacts: %w", err)
	}
	v.contacts = contacts
	v.loaded = true
	v.refetching = refetching
	for id, gs := range groups {
		v.groupsByContact[id] = gs
	}
	v.pruneLocked()
	return nil
}

func (v *ContactsView) fetchGroups(ctx context.Context, contacts []models.Contact) map[string][]models.Group {
	out := make(map[string][]models.Group, len(contacts))
	for _, c := range contacts {
		gs, err := v.GroupsForContact(ctx, c.ID)
		if err != nil {
			v.logger.Warn("load groups for contact", zap.String("contact_id", c.ID), zap.Error(err))
			continue
		}
		out[c.ID] = gs
	}
	return out
}

func (v *ContactsView) onCacheChange(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || key != ContactsListKey(v.listRequest()) {
		return
	}
	v.refetching = false
	if err := v.cache.LastError(key); err != nil {
		v.err = fmt.Sprintf("failed to refresh contacts: %v", err)
		return
	}
	if val, ok := v.cache.Peek(key); ok {
		if contacts, ok := val.([]models.Contact); ok {
			v.contacts = contacts
			v.pruneLocked()
		}
	}
}

func (v *ContactsView) filteredLocked() []models.Contact {
	return v.engine.Apply(v.contacts, Criteria{
		Search:  v.search,
		Period:  v.period,
		Sources: v.sources,
		Sort:    v.sort,
	})
}

func (v *ContactsView) pruneLocked() {
	v.selection.Prune(v.filteredLocked())
}

// Filtered returns the visible rows in display order.
func (v *ContactsView) Filtered() []models.Contact {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.filteredLocked()
}

func (v *ContactsView) SetSearch(search string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.search = search
	v.pruneLocked()
}

func (v *ContactsView) SetPeriod(p DatePeriod) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.period = p
	v.pruneLocked()
}

func (v *ContactsView) SetSources(sources []models.Source) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sources = append([]models.Source(nil), sources...)
	v.pruneLocked()
}

// ToggleSource adds or removes one source from the source filter.
func (v *ContactsView) ToggleSource(s models.Source) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, existing := range v.sources {
		if existing == s {
			v.sources = append(v.sources[:i:i], v.sources[i+1:]...)
			v.pruneLocked()
			return
		}
	}
	v.sources = append(v.sources, s)
	v.pruneLocked()
}

func (v *ContactsView) SetSort(spec SortSpec) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if spec.NameOrder == "" {
		spec.NameOrder = v.sort.NameOrder
	}
	v.sort = spec
}

// ToggleSort handles a click on a sortable header.
func (v *ContactsView) ToggleSort(field SortField) SortSpec {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sort = v.sort.Toggle(field)
	return v.sort
}

func (v *ContactsView) SetNameOrder(o NameOrder) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sort.NameOrder = o
}

func (v *ContactsView) Sort() SortSpec {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sort
}

// SetGroupFilter narrows the server-side list to one group. Call Load
// afterwards to fetch it.
func (v *ContactsView) SetGroupFilter(groupID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.groupID == groupID {
		return
	}
	v.groupID = groupID
	v.loaded = false
}

func (v *ContactsView) ToggleColumn(id ColumnID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.columns.Toggle(id)
}

func (v *ContactsView) ReorderColumn(dragged, target ColumnID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.columns.Reorder(dragged, target)
}

func (v *ContactsView) DragStart(id ColumnID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.columns.DragStart(id)
}

func (v *ContactsView) DragOver(id ColumnID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.columns.DragOver(id)
}

func (v *ContactsView) Drop(target ColumnID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.columns.Drop(target)
}

func (v *ContactsView) DragEnd() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.columns.DragEnd()
}

func (v *ContactsView) Columns() []ColumnID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.columns.Rendered()
}

func (v *ContactsView) SelectAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.selection.SelectAll(v.filteredLocked())
}

// SelectRow ignores ids that are not among the filtered rows.
func (v *ContactsView) SelectRow(id string, selected bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if selected && !containsContact(v.filteredLocked(), id) {
		return
	}
	v.selection.SelectRow(id, selected)
}

// Selected returns the selection in row order.
func (v *ContactsView) Selected() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selection.Snapshot(v.filteredLocked())
}

func (v *ContactsView) AllSelected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.selection.AllSelected(v.filteredLocked())
}

func (v *ContactsView) Err() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

func (v *ContactsView) ClearError() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.err = ""
}

// setErr records a gateway error unless the view has been closed.
func (v *ContactsView) setErr(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.err = msg
	}
}

func (v *ContactsView) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// RequestDelete opens the delete confirmation for one contact.
func (v *ContactsView) RequestDelete(contactID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pendingDelete = contactID
}

func (v *ContactsView) CancelDelete() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pendingDelete = ""
}

func (v *ContactsView) PendingDelete() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pendingDelete
}

// ConfirmDelete deletes the contact passed to RequestDelete. On failure the
// confirmation stays open so the user can retry.
func (v *ContactsView) ConfirmDelete(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	id := v.pendingDelete
	v.mu.Unlock()
	if id == "" {
		return ErrNoPendingDelete
	}

	if err := v.gateway.DeleteContact(ctx, id); err != nil {
		v.setErr(fmt.Sprintf("failed to delete contact: %v", err))
		return fmt.Errorf("delete contact %s: %w", id, err)
	}

	v.mu.Lock()
	if !v.closed {
		v.pendingDelete = ""
		v.err = ""
		kept := v.contacts[:0:0]
		for _, c := range v.contacts {
			if c.ID != id {
				kept = append(kept, c)
			}
		}
		v.contacts = kept
		v.selection.SelectRow(id, false)
	}
	v.mu.Unlock()

	v.cache.InvalidatePrefix(ContactsListPrefix)
	v.cache.Invalidate(GroupsListKey)
	v.markRefetching()
	return nil
}

// RequestBulkDelete returns how many rows the bulk delete prompt covers.
func (v *ContactsView) RequestBulkDelete() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.selection.Snapshot(v.filteredLocked()))
}

// ConfirmBulkDelete is not wired to the gateway. The selection is kept.
func (v *ContactsView) ConfirmBulkDelete(context.Context) error {
	v.setErr(ErrBulkDeleteUnsupported.Error())
	return ErrBulkDeleteUnsupported
}

func (v *ContactsView) snapshot() ([]string, map[string]models.Contact) {
	v.mu.Lock()
	defer v.mu.Unlock()
	filtered := v.filteredLocked()
	byID := make(map[string]models.Contact, len(filtered))
	for _, c := range filtered {
		byID[c.ID] = c
	}
	return v.selection.Snapshot(filtered), byID
}

func (v *ContactsView) finishBulk(result BatchResult) {
	v.mu.Lock()
	if !v.closed {
		if result.Err == nil {
			v.selection.Clear()
			v.err = ""
		} else {
			v.err = result.Message()
		}
	}
	v.mu.Unlock()
	v.markRefetching()
}

func (v *ContactsView) markRefetching() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed && v.cache.Refetching(ContactsListKey(v.listRequest())) {
		v.refetching = true
	}
}

// BulkAddToGroup adds the selected contacts to a group one at a time.
func (v *ContactsView) BulkAddToGroup(ctx context.Context, groupID string) BatchResult {
	ids, _ := v.snapshot()
	if v.isClosed() {
		return BatchResult{Err: ErrViewClosed}
	}
	result := v.syncer.AddToGroup(ctx, ids, groupID)
	v.finishBulk(result)
	return result
}

// BulkEnrich queues enrichment for the selected contacts.
func (v *ContactsView) BulkEnrich(ctx context.Context) BatchResult {
	ids, byID := v.snapshot()
	if v.isClosed() {
		return BatchResult{Err: ErrViewClosed}
	}

	var (
		result BatchResult
		errs   []error
	)
	for _, id := range ids {
		c := byID[id]
		c.EnrichmentStatus = models.EnrichmentPending
		if _, err := v.gateway.SaveContact(ctx, &c); err != nil {
			result.Failed = append(result.Failed, id)
			errs = append(errs, fmt.Errorf("contact %s: %w", id, err))
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	result.Err = errors.Join(errs...)

	v.cache.InvalidatePrefix(ContactsListPrefix)
	v.finishBulk(result)
	return result
}

// Export writes the selected rows, or every filtered row when nothing is
// selected, as CSV using the rendered columns.
func (v *ContactsView) Export(w io.Writer) error {
	v.mu.Lock()
	filtered := v.filteredLocked()
	columns := v.columns.Rendered()
	rows := filtered
	if v.selection.Len() > 0 {
		rows = make([]models.Contact, 0, v.selection.Len())
		for _, c := range filtered {
			if v.selection.Has(c.ID) {
				rows = append(rows, c)
			}
		}
	}
	groups := make(map[string][]models.Group, len(v.groupsByContact))
	for id, gs := range v.groupsByContact {
		groups[id] = gs
	}
	v.mu.Unlock()

	return WriteCSV(w, columns, rows, groups)
}

// SaveContact validates the form and saves it. A *ValidationError is
// returned without calling the gateway.
func (v *ContactsView) SaveContact(ctx context.Context, form *models.ContactForm) (*models.Contact, error) {
	if err := ValidateContactForm(form); err != nil {
		return nil, err
	}
	if v.isClosed() {
		return nil, ErrViewClosed
	}

	saved, err := v.gateway.SaveContact(ctx, form.Contact(""))
	if err != nil {
		v.setErr(fmt.Sprintf("failed to save contact: %v", err))
		return nil, fmt.Errorf("save contact: %w", err)
	}

	v.cache.InvalidatePrefix(ContactsListPrefix)
	v.markRefetching()
	return saved, nil
}

// GroupsForContact lazily loads a contact's groups.
func (v *ContactsView) GroupsForContact(ctx context.Context, contactID string) ([]models.Group, error) {
	groups, _, err := Query(ctx, v.cache, GroupsForContactKey(contactID), func(ctx context.Context) ([]models.Group, error) {
		return v.gateway.GetGroupsForContact(ctx, contactID)
	})
	return groups, err
}

func (v *ContactsView) ListGroups(ctx context.Context) ([]models.Group, error) {
	groups, _, err := Query(ctx, v.cache, GroupsListKey, v.gateway.ListGroups)
	return groups, err
}

// AvailableGroupsFor lists the groups a contact is not yet a member of.
func (v *ContactsView) AvailableGroupsFor(ctx context.Context, contactID string) ([]models.Group, error) {
	all, err := v.ListGroups(ctx)
	if err != nil {
		return nil, err
	}
	memberOf, err := v.GroupsForContact(ctx, contactID)
	if err != nil {
		return nil, err
	}
	return AvailableGroups(all, memberOf), nil
}

// RemoveFromGroup removes a single membership through the synchronizer.
func (v *ContactsView) RemoveFromGroup(ctx context.Context, contactID, groupID string) error {
	if err := v.syncer.RemoveFromGroup(ctx, contactID, groupID); err != nil {
		v.setErr(v.syncer.Err())
		return err
	}
	return nil
}

func (v *ContactsView) Synchronizer() *Synchronizer {
	return v.syncer
}

// AvatarURL resolves a profile image reference. Direct URLs are returned
// as is; storage paths are signed through the gateway and cached.
func (v *ContactsView) AvatarURL(ctx context.Context, c *models.Contact) (string, error) {
	if c.ProfileImage == nil || *c.ProfileImage == "" {
		return "", nil
	}
	ref := *c.ProfileImage
	if utils.IsURL(ref) {
		return ref, nil
	}
	signed, _, err := Query(ctx, v.cache, FileURLKey(ref), func(ctx context.Context) (string, error) {
		return v.gateway.GetFileURL(ctx, ref)
	})
	if err != nil {
		return "", fmt.Errorf("resolve avatar for contact %s: %w", c.ID, err)
	}
	return signed, nil
}

// Table renders the current state.
func (v *ContactsView) Table() Table {
	v.mu.Lock()
	defer v.mu.Unlock()

	filtered := v.filteredLocked()
	columns := v.columns.Rendered()

	t := Table{
		Columns:       make([]HeaderCell, 0, len(columns)),
		Rows:          make([]Row, 0, len(filtered)),
		Total:         len(v.contacts),
		SelectedCount: v.selection.Len(),
		AllSelected:   v.selection.AllSelected(filtered),
		Loading:       v.loading,
		Refetching:    v.refetching,
		PendingDelete: v.pendingDelete,
		Error:         v.err,
	}

	for _, id := range columns {
		h := HeaderCell{ID: id, Label: string(id), DragClass: v.columns.DragClass(id)}
		if col, ok := LookupColumn(id); ok {
			h.Label = col.Label
			h.Sortable = col.SortField != ""
			if h.Sortable && col.SortField == v.sort.Field {
				h.Sorted = v.sort.Direction
			}
		}
		t.Columns = append(t.Columns, h)
	}

	for i := range filtered {
		c := &filtered[i]
		ctx := CellContext{Groups: v.groupsByContact[c.ID]}
		cells := make([]string, len(columns))
		for j, id := range columns {
			cells[j] = FormatCell(id, c, ctx)
		}
		t.Rows = append(t.Rows, Row{
			ID:       c.ID,
			Selected: v.selection.Has(c.ID),
			Cells:    cells,
			Contact:  *c,
		})
	}
	return t
}

// Close detaches the view from the cache. Later responses are discarded.
func (v *ContactsView) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	unsubscribe := v.unsubscribe
	v.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func containsContact(contacts []models.Contact, id string) bool {
	for _, c := range contacts {
		if c.ID == id {
			return true
		}
	}
	return false
}
