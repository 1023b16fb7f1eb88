package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory store. Transactions are serialized and roll back on error by
// restoring a snapshot, which is enough to observe atomicity in tests.
// ---------------------------------------------------------------------------

type memState struct {
	users       map[int64]domain.User
	cards       map[int64]domain.MembershipCard
	loans       map[int64]domain.Loan
	books       map[int64]domain.Book
	authors     map[int64]domain.Author
	bookAuthors map[int64][]int64
	nextID      int64
}

func newMemState() *memState {
	return &memState{
		users:       make(map[int64]domain.User),
		cards:       make(map[int64]domain.MembershipCard),
		loans:       make(map[int64]domain.Loan),
		books:       make(map[int64]domain.Book),
		authors:     make(map[int64]domain.Author),
		bookAuthors: make(map[int64][]int64),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	c.nextID = s.nextID
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.cards {
		c.cards[k] = v
	}
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.authors {
		c.authors[k] = v
	}
	for k, v := range s.bookAuthors {
		c.bookAuthors[k] = append([]int64(nil), v...)
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

type memStore struct {
	mu     sync.Mutex
	state  *memState
	calls  []string
	actors []domain.Actor
	failOn map[string]error
}

func newMemStore() *memStore {
	return &memStore{state: newMemState(), failOn: make(map[string]error)}
}

func (m *memStore) WithActor(ctx context.Context, actor domain.Actor, fn func(ctx context.Context, tx ports.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actors = append(m.actors, actor)
	snapshot := m.state.clone()
	if err := fn(ctx, &memTx{m: m, actor: actor}); err != nil {
		m.state = snapshot
		return err
	}
	return nil
}

// call records a repository call and returns the injected failure, if any.
func (m *memStore) call(name string) error {
	m.calls = append(m.calls, name)
	return m.failOn[name]
}

// callsWithPrefix filters recorded calls, e.g. to the write path.
func (m *memStore) callsWithPrefix(prefixes ...string) []string {
	var out []string
	for _, c := range m.calls {
		for _, p := range prefixes {
			if strings.HasPrefix(c, p) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// Seeding helpers used outside of transactions.

func (m *memStore) seedCard(serial string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.state.id()
	m.state.cards[id] = domain.MembershipCard{ID: id, SerialNumber: serial, Status: domain.CardFree}
	return id
}

func (m *memStore) seedUser(email string, role domain.Role, passwordHash string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.state.id()
	m.state.users[id] = domain.User{ID: id, Email: email, Role: role, PasswordHash: passwordHash, FirstName: "F", LastName: "L"}
	return id
}

func (m *memStore) seedBook(title string, isbn string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.state.id()
	b := domain.Book{ID: id, Title: title}
	if isbn != "" {
		b.ISBN = &isbn
	}
	m.state.books[id] = b
	return id
}

func (m *memStore) seedLoan(l domain.Loan) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.state.id()
	m.state.loans[l.ID] = l
	return l.ID
}

func (m *memStore) card(id int64) domain.MembershipCard {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.cards[id]
}

func (m *memStore) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.users)
}

func (m *memStore) activeLoans(bookID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.state.loans {
		if l.BookID == bookID && l.ReturnedAt == nil {
			n++
		}
	}
	return n
}

type memTx struct {
	m     *memStore
	actor domain.Actor
}

func (t *memTx) Users() ports.UserRepository     { return memUsers{t.m} }
func (t *memTx) Cards() ports.CardRepository     { return memCards{t.m} }
func (t *memTx) Loans() ports.LoanRepository     { return memLoans{t.m, t.actor} }
func (t *memTx) Books() ports.BookRepository     { return memBooks{t.m} }
func (t *memTx) Authors() ports.AuthorRepository { return memAuthors{t.m} }

func window[T any](items []T, p domain.Page) []T {
	p = p.Normalize()
	start := p.Offset()
	if start > len(items) {
		return []T{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func sortedIDs[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// --- users -------------------------------------------------------------------

type memUsers struct{ m *memStore }

func (r memUsers) Create(_ context.Context, u *domain.User) error {
	if err := r.m.call("Users.Create"); err != nil {
		return err
	}
	for _, existing := range r.m.state.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return domain.ErrEmailTaken
		}
	}
	u.ID = r.m.state.id()
	r.m.state.users[u.ID] = *u
	return nil
}

func (r memUsers) FindByID(_ context.Context, id int64) (*domain.User, error) {
	if err := r.m.call("Users.FindByID"); err != nil {
		return nil, err
	}
	u, ok := r.m.state.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if err := r.m.call("Users.FindByEmail"); err != nil {
		return nil, err
	}
	for _, u := range r.m.state.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r memUsers) List(_ context.Context, page domain.Page) ([]*domain.User, int64, error) {
	if err := r.m.call("Users.List"); err != nil {
		return nil, 0, err
	}
	var all []*domain.User
	for _, id := range sortedIDs(r.m.state.users) {
		u := r.m.state.users[id]
		all = append(all, &u)
	}
	return window(all, page), int64(len(all)), nil
}

func (r memUsers) Update(_ context.Context, id int64, p domain.UserPatch) (*domain.User, error) {
	if err := r.m.call("Users.Update"); err != nil {
		return nil, err
	}
	u, ok := r.m.state.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	r.m.state.users[id] = u
	return &u, nil
}

func (r memUsers) Delete(_ context.Context, id int64) error {
	if err := r.m.call("Users.Delete"); err != nil {
		return err
	}
	if _, ok := r.m.state.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.m.state.users, id)
	for cid, c := range r.m.state.cards {
		if c.UserID != nil && *c.UserID == id {
			c.UserID = nil
			r.m.state.cards[cid] = c
		}
	}
	for lid, l := range r.m.state.loans {
		if l.UserID == id {
			delete(r.m.state.loans, lid)
		}
	}
	return nil
}

// --- cards -------------------------------------------------------------------

type memCards struct{ m *memStore }

func (r memCards) FindFirstFree(_ context.Context) (*domain.MembershipCard, error) {
	if err := r.m.call("Cards.FindFirstFree"); err != nil {
		return nil, err
	}
	for _, id := range sortedIDs(r.m.state.cards) {
		c := r.m.state.cards[id]
		if c.Status == domain.CardFree && c.ArchivedAt == nil {
			return &c, nil
		}
	}
	return nil, domain.ErrNoFreeCard
}

func (r memCards) Assign(_ context.Context, cardID, userID int64, at time.Time) (*domain.MembershipCard, error) {
	if err := r.m.call("Cards.Assign"); err != nil {
		return nil, err
	}
	c, ok := r.m.state.cards[cardID]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	if c.Status != domain.CardFree {
		return nil, domain.ErrCardInUse
	}
	c.Status = domain.CardInUse
	c.UserID = &userID
	c.AssignedAt = &at
	c.UpdatedAt = at
	r.m.state.cards[cardID] = c
	return &c, nil
}

func (r memCards) Create(_ context.Context, serial string) (*domain.MembershipCard, error) {
	if err := r.m.call("Cards.Create"); err != nil {
		return nil, err
	}
	for _, c := range r.m.state.cards {
		if c.SerialNumber == serial {
			return nil, domain.ErrSerialTaken
		}
	}
	c := domain.MembershipCard{ID: r.m.state.id(), SerialNumber: serial, Status: domain.CardFree}
	r.m.state.cards[c.ID] = c
	return &c, nil
}

func (r memCards) CreateMany(_ context.Context, serials []string) ([]*domain.MembershipCard, error) {
	if err := r.m.call("Cards.CreateMany"); err != nil {
		return nil, err
	}
	taken := make(map[string]bool)
	for _, c := range r.m.state.cards {
		taken[c.SerialNumber] = true
	}
	var out []*domain.MembershipCard
	for _, s := range serials {
		if taken[s] {
			continue
		}
		taken[s] = true
		c := domain.MembershipCard{ID: r.m.state.id(), SerialNumber: s, Status: domain.CardFree}
		r.m.state.cards[c.ID] = c
		out = append(out, &c)
	}
	return out, nil
}

func (r memCards) MaxSerialNumber(_ context.Context, prefix string) (int, error) {
	if err := r.m.call("Cards.MaxSerialNumber"); err != nil {
		return 0, err
	}
	highest := 0
	for _, c := range r.m.state.cards {
		suffix, ok := strings.CutPrefix(c.SerialNumber, prefix)
		if !ok || suffix == "" || strings.Trim(suffix, "0123456789") != "" {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > highest {
			highest = n
		}
	}
	return highest, nil
}

func (r memCards) FindByID(_ context.Context, id int64) (*domain.MembershipCard, error) {
	if err := r.m.call("Cards.FindByID"); err != nil {
		return nil, err
	}
	c, ok := r.m.state.cards[id]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	return &c, nil
}

func (r memCards) FindByUserID(_ context.Context, userID int64) (*domain.MembershipCard, error) {
	if err := r.m.call("Cards.FindByUserID"); err != nil {
		return nil, err
	}
	for _, c := range r.m.state.cards {
		if c.UserID != nil && *c.UserID == userID && c.ArchivedAt == nil {
			return &c, nil
		}
	}
	return nil, domain.ErrUserHasNoCard
}

func (r memCards) List(_ context.Context, f domain.CardFilter) ([]*domain.MembershipCard, int64, error) {
	if err := r.m.call("Cards.List"); err != nil {
		return nil, 0, err
	}
	var all []*domain.MembershipCard
	for _, id := range sortedIDs(r.m.state.cards) {
		c := r.m.state.cards[id]
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		all = append(all, &c)
	}
	return window(all, f.Page), int64(len(all)), nil
}

func (r memCards) Archive(_ context.Context, id int64, at time.Time) (*domain.MembershipCard, error) {
	if err := r.m.call("Cards.Archive"); err != nil {
		return nil, err
	}
	c, ok := r.m.state.cards[id]
	if !ok {
		return nil, domain.ErrCardNotFound
	}
	c.ArchivedAt = &at
	c.UpdatedAt = at
	r.m.state.cards[id] = c
	return &c, nil
}

// --- loans -------------------------------------------------------------------

// memLoans mirrors the loans row-level security policy: users only read
// their own loans. Inserts still see every active loan, like the unique index.
type memLoans struct {
	m     *memStore
	actor domain.Actor
}

func (r memLoans) visible(l domain.Loan) bool {
	return r.actor.Privileged() || l.UserID == r.actor.UserID
}

func (r memLoans) Create(_ context.Context, l *domain.Loan) error {
	if err := r.m.call("Loans.Create"); err != nil {
		return err
	}
	for _, existing := range r.m.state.loans {
		if existing.BookID == l.BookID && existing.ReturnedAt == nil {
			return domain.ErrBookAlreadyLoaned
		}
	}
	l.ID = r.m.state.id()
	r.m.state.loans[l.ID] = *l
	return nil
}

func (r memLoans) find(name string, id int64) (*domain.Loan, error) {
	if err := r.m.call(name); err != nil {
		return nil, err
	}
	l, ok := r.m.state.loans[id]
	if !ok || !r.visible(l) {
		return nil, domain.ErrLoanNotFound
	}
	return &l, nil
}

func (r memLoans) BorrowerOf(_ context.Context, id int64) (int64, error) {
	if err := r.m.call("Loans.BorrowerOf"); err != nil {
		return 0, err
	}
	l, ok := r.m.state.loans[id]
	if !ok {
		return 0, domain.ErrLoanNotFound
	}
	return l.UserID, nil
}

func (r memLoans) FindByID(_ context.Context, id int64) (*domain.Loan, error) {
	return r.find("Loans.FindByID", id)
}

func (r memLoans) FindByIDForUpdate(_ context.Context, id int64) (*domain.Loan, error) {
	return r.find("Loans.FindByIDForUpdate", id)
}

func (r memLoans) FindActiveByBookID(_ context.Context, bookID int64) (*domain.Loan, error) {
	if err := r.m.call("Loans.FindActiveByBookID"); err != nil {
		return nil, err
	}
	for _, l := range r.m.state.loans {
		if l.BookID == bookID && l.ReturnedAt == nil && r.visible(l) {
			return &l, nil
		}
	}
	return nil, domain.ErrLoanNotFound
}

func (r memLoans) List(_ context.Context, f domain.LoanFilter) ([]*domain.Loan, error) {
	if err := r.m.call("Loans.List"); err != nil {
		return nil, err
	}
	var all []*domain.Loan
	for _, id := range sortedIDs(r.m.state.loans) {
		l := r.m.state.loans[id]
		if !r.visible(l) {
			continue
		}
		if f.UserID != 0 && l.UserID != f.UserID {
			continue
		}
		if f.BookID != 0 && l.BookID != f.BookID {
			continue
		}
		if f.OngoingOnly && l.ReturnedAt != nil {
			continue
		}
		all = append(all, &l)
	}
	return window(all, f.Page), nil
}

func (r memLoans) CountActiveByUser(_ context.Context, userID int64) (int, error) {
	if err := r.m.call("Loans.CountActiveByUser"); err != nil {
		return 0, err
	}
	n := 0
	for _, l := range r.m.state.loans {
		if l.UserID == userID && l.ReturnedAt == nil {
			n++
		}
	}
	return n, nil
}

func (r memLoans) SaveReturn(_ context.Context, l *domain.Loan) error {
	if err := r.m.call("Loans.SaveReturn"); err != nil {
		return err
	}
	if _, ok := r.m.state.loans[l.ID]; !ok {
		return domain.ErrLoanNotFound
	}
	r.m.state.loans[l.ID] = *l
	return nil
}

// --- books -------------------------------------------------------------------

type memBooks struct{ m *memStore }

func (r memBooks) withAuthors(b domain.Book) *domain.Book {
	b.Authors = []domain.Author{}
	for _, aid := range r.m.state.bookAuthors[b.ID] {
		if a, ok := r.m.state.authors[aid]; ok {
			b.Authors = append(b.Authors, a)
		}
	}
	return &b
}

func (r memBooks) Create(_ context.Context, b *domain.Book) error {
	if err := r.m.call("Books.Create"); err != nil {
		return err
	}
	if b.ISBN != nil {
		for _, existing := range r.m.state.books {
			if existing.ISBN != nil && *existing.ISBN == *b.ISBN {
				return domain.ErrISBNTaken
			}
		}
	}
	b.ID = r.m.state.id()
	r.m.state.books[b.ID] = *b
	return nil
}

func (r memBooks) FindByID(_ context.Context, id int64) (*domain.Book, error) {
	if err := r.m.call("Books.FindByID"); err != nil {
		return nil, err
	}
	b, ok := r.m.state.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	return r.withAuthors(b), nil
}

func (r memBooks) FindByISBN(_ context.Context, isbn string) (*domain.Book, error) {
	if err := r.m.call("Books.FindByISBN"); err != nil {
		return nil, err
	}
	for _, b := range r.m.state.books {
		if b.ISBN != nil && *b.ISBN == isbn {
			return r.withAuthors(b), nil
		}
	}
	return nil, domain.ErrBookNotFound
}

func (r memBooks) LockByID(_ context.Context, id int64) (*domain.Book, error) {
	if err := r.m.call("Books.LockByID"); err != nil {
		return nil, err
	}
	b, ok := r.m.state.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	return &b, nil
}

func (r memBooks) Update(_ context.Context, id int64, p domain.BookPatch) (*domain.Book, error) {
	if err := r.m.call("Books.Update"); err != nil {
		return nil, err
	}
	b, ok := r.m.state.books[id]
	if !ok {
		return nil, domain.ErrBookNotFound
	}
	if p.ISBN != nil {
		b.ISBN = p.ISBN
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Description != nil {
		b.Description = *p.Description
	}
	if p.Publisher != nil {
		b.Publisher = *p.Publisher
	}
	if p.PublishedDate != nil {
		b.PublishedDate = *p.PublishedDate
	}
	if p.PageCount != nil {
		b.PageCount = *p.PageCount
	}
	if p.CoverURL != nil {
		b.CoverURL = *p.CoverURL
	}
	if p.Language != nil {
		b.Language = *p.Language
	}
	r.m.state.books[id] = b
	return r.withAuthors(b), nil
}

func (r memBooks) Delete(_ context.Context, id int64) error {
	if err := r.m.call("Books.Delete"); err != nil {
		return err
	}
	if _, ok := r.m.state.books[id]; !ok {
		return domain.ErrBookNotFound
	}
	delete(r.m.state.books, id)
	delete(r.m.state.bookAuthors, id)
	return nil
}

func (r memBooks) Search(_ context.Context, q domain.BookQuery) ([]*domain.Book, int64, error) {
	if err := r.m.call("Books.Search"); err != nil {
		return nil, 0, err
	}
	var all []*domain.Book
	for _, id := range sortedIDs(r.m.state.books) {
		b := r.m.state.books[id]
		if q.Q != "" {
			titleMatch := strings.Contains(strings.ToLower(b.Title), strings.ToLower(q.Q))
			isbnMatch := b.ISBN != nil && *b.ISBN == q.Q
			if !titleMatch && !isbnMatch {
				continue
			}
		}
		if q.AuthorID != 0 {
			found := false
			for _, aid := range r.m.state.bookAuthors[id] {
				found = found || aid == q.AuthorID
			}
			if !found {
				continue
			}
		}
		all = append(all, r.withAuthors(b))
	}
	return window(all, q.Page), int64(len(all)), nil
}

func (r memBooks) AttachAuthor(_ context.Context, bookID, authorID int64) error {
	if err := r.m.call("Books.AttachAuthor"); err != nil {
		return err
	}
	for _, aid := range r.m.state.bookAuthors[bookID] {
		if aid == authorID {
			return nil
		}
	}
	r.m.state.bookAuthors[bookID] = append(r.m.state.bookAuthors[bookID], authorID)
	return nil
}

func (r memBooks) DetachAuthor(_ context.Context, bookID, authorID int64) error {
	if err := r.m.call("Books.DetachAuthor"); err != nil {
		return err
	}
	ids := r.m.state.bookAuthors[bookID]
	kept := ids[:0]
	for _, aid := range ids {
		if aid != authorID {
			kept = append(kept, aid)
		}
	}
	r.m.state.bookAuthors[bookID] = kept
	return nil
}

// --- authors -----------------------------------------------------------------

type memAuthors struct{ m *memStore }

func (r memAuthors) Create(_ context.Context, a *domain.Author) error {
	if err := r.m.call("Authors.Create"); err != nil {
		return err
	}
	a.ID = r.m.state.id()
	r.m.state.authors[a.ID] = *a
	return nil
}

func (r memAuthors) FindByID(_ context.Context, id int64) (*domain.Author, error) {
	if err := r.m.call("Authors.FindByID"); err != nil {
		return nil, err
	}
	a, ok := r.m.state.authors[id]
	if !ok {
		return nil, domain.ErrAuthorNotFound
	}
	return &a, nil
}

func (r memAuthors) FindByName(_ context.Context, first, last string) (*domain.Author, error) {
	if err := r.m.call("Authors.FindByName"); err != nil {
		return nil, err
	}
	for _, id := range sortedIDs(r.m.state.authors) {
		a := r.m.state.authors[id]
		if strings.EqualFold(a.FirstName, first) && strings.EqualFold(a.LastName, last) {
			return &a, nil
		}
	}
	return nil, domain.ErrAuthorNotFound
}

func (r memAuthors) List(_ context.Context, page domain.Page) ([]*domain.Author, int64, error) {
	if err := r.m.call("Authors.List"); err != nil {
		return nil, 0, err
	}
	var all []*domain.Author
	for _, id := range sortedIDs(r.m.state.authors) {
		a := r.m.state.authors[id]
		all = append(all, &a)
	}
	return window(all, page), int64(len(all)), nil
}

func (r memAuthors) Update(_ context.Context, id int64, p domain.AuthorPatch) (*domain.Author, error) {
	if err := r.m.call("Authors.Update"); err != nil {
		return nil, err
	}
	a, ok := r.m.state.authors[id]
	if !ok {
		return nil, domain.ErrAuthorNotFound
	}
	if p.FirstName != nil {
		a.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		a.LastName = *p.LastName
	}
	if p.Bio != nil {
		a.Bio = *p.Bio
	}
	r.m.state.authors[id] = a
	return &a, nil
}

func (r memAuthors) Delete(_ context.Context, id int64) error {
	if err := r.m.call("Authors.Delete"); err != nil {
		return err
	}
	if _, ok := r.m.state.authors[id]; !ok {
		return domain.ErrAuthorNotFound
	}
	delete(r.m.state.authors, id)
	for bid, ids := range r.m.state.bookAuthors {
		kept := make([]int64, 0, len(ids))
		for _, aid := range ids {
			if aid != id {
				kept = append(kept, aid)
			}
		}
		r.m.state.bookAuthors[bid] = kept
	}
	return nil
}

// ---------------------------------------------------------------------------
// Collaborator stubs
// ---------------------------------------------------------------------------

type fakeHasher struct {
	compares int
}

func (h *fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (h *fakeHasher) Compare(hash, password string) error {
	h.compares++
	if hash != "hashed:"+password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(u *domain.User) (string, error) {
	return "token-" + u.Email, nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (a *memAudit) Record(_ context.Context, e domain.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *memAudit) actions() []domain.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuditAction, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}
