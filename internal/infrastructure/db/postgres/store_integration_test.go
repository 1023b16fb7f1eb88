package postgres

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookbound/library/internal/core/domain"
	"github.com/bookbound/library/internal/core/ports"
	"github.com/bookbound/library/internal/core/service"
	"github.com/bookbound/library/internal/infrastructure/db/postgres/migrations"
)

// openTestStore connects to LIBRARY_TEST_DATABASE_URL, migrates and empties
// the schema. Tests are skipped when the variable is unset.
func openTestStore(t *testing.T) (*DB, *Store) {
	t.Helper()
	url := os.Getenv("LIBRARY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LIBRARY_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := NewDB(ctx, Config{URL: url, MaxConns: 20}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = migrations.Run(ctx, db.Pool, zerolog.Nop())
	require.NoError(t, err)

	_, err = db.Pool.Exec(ctx, `TRUNCATE loans, book_authors, books, authors, membership_cards, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return db, NewStore(db)
}

// requireRLS skips tests whose assertions depend on policies being enforced
// for the connecting role.
func requireRLS(t *testing.T, db *DB) {
	t.Helper()
	var bypass bool
	err := db.Pool.QueryRow(context.Background(),
		`SELECT rolsuper OR rolbypassrls FROM pg_roles WHERE rolname = current_user`).Scan(&bypass)
	require.NoError(t, err)
	if bypass {
		t.Skip("connecting role bypasses row level security")
	}
}

func seedCards(t *testing.T, store *Store, serials ...string) {
	t.Helper()
	err := store.WithActor(context.Background(), domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		_, err := tx.Cards().CreateMany(ctx, serials)
		return err
	})
	require.NoError(t, err)
}

func createUser(t *testing.T, store *Store, email string, role domain.Role) domain.Actor {
	t.Helper()
	u := &domain.User{Email: email, PasswordHash: "x", FirstName: "F", LastName: "L", Role: role, CreatedAt: time.Now().UTC()}
	err := store.WithActor(context.Background(), domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		return tx.Users().Create(ctx, u)
	})
	require.NoError(t, err)
	return domain.Actor{UserID: u.ID, Role: role}
}

func createBook(t *testing.T, store *Store, title string) int64 {
	t.Helper()
	b := &domain.Book{Title: title}
	err := store.WithActor(context.Background(), domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		return tx.Books().Create(ctx, b)
	})
	require.NoError(t, err)
	return b.ID
}

func TestStore_ActorSettingsAreTransactionLocal(t *testing.T) {
	db, store := openTestStore(t)
	ctx := context.Background()

	err := store.WithActor(ctx, domain.Actor{UserID: 7, Role: domain.RoleAdmin}, func(ctx context.Context, tx ports.Tx) error {
		r := tx.(*repos)
		var id, role string
		require.NoError(t, r.q.QueryRow(ctx,
			`SELECT current_setting('app.current_user_id', true), current_setting('app.current_role', true)`).Scan(&id, &role))
		assert.Equal(t, "7", id)
		assert.Equal(t, "ADMIN", role)
		return nil
	})
	require.NoError(t, err)

	// Every pooled connection must come back clean.
	for i := 0; i < 5; i++ {
		var role string
		require.NoError(t, db.Pool.QueryRow(ctx, `SELECT coalesce(current_setting('app.current_role', true), '')`).Scan(&role))
		assert.Empty(t, role)
	}
}

func TestStore_RollbackOnError(t *testing.T) {
	_, store := openTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.WithActor(ctx, domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		u := &domain.User{Email: "ghost@example.com", PasswordHash: "x", FirstName: "G", LastName: "H", Role: domain.RoleUser, CreatedAt: time.Now()}
		require.NoError(t, tx.Users().Create(ctx, u))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = store.WithActor(ctx, domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		_, err := tx.Users().FindByEmail(ctx, "GHOST@example.com")
		return err
	})
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRegistration_ConcurrentUsersGetDistinctCards(t *testing.T) {
	_, store := openTestStore(t)
	seedCards(t, store, "BB0001", "BB0002", "BB0003")

	hasher := plainHasher{}
	auth := service.NewAuthService(store, hasher, plainSigner{}, nil, zerolog.Nop())

	const attempts = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		exhausted int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := auth.Register(context.Background(), ports.RegisterInput{
				Email: "user" + string(rune('a'+i)) + "@example.com", FirstName: "U", LastName: "V", Password: "password1",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrNoFreeCard):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	assert.Equal(t, attempts-3, exhausted)

	var users, inUse, holders int
	err := store.WithActor(context.Background(), domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		q := tx.(*repos).q
		if err := q.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&users); err != nil {
			return err
		}
		return q.QueryRow(ctx, `SELECT count(*), count(DISTINCT user_id) FROM membership_cards WHERE status = 'IN_USE'`).Scan(&inUse, &holders)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, users, "no user may exist without a card")
	assert.Equal(t, 3, inUse)
	assert.Equal(t, 3, holders)
}

func TestLoans_ConcurrentCreateSingleWinner(t *testing.T) {
	db, store := openTestStore(t)
	book := createBook(t, store, "Dune")
	loans := service.NewLoanService(store, nil, 0, zerolog.Nop())

	const borrowers = 8
	actors := make([]domain.Actor, borrowers)
	for i := range actors {
		actors[i] = createUser(t, store, "b"+string(rune('a'+i))+"@example.com", domain.RoleUser)
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, actor := range actors {
		wg.Add(1)
		go func(actor domain.Actor) {
			defer wg.Done()
			_, err := loans.Create(context.Background(), actor, ports.CreateLoanInput{BookID: book})
			if err != nil && !errors.Is(err, domain.ErrBookAlreadyLoaned) {
				t.Errorf("unexpected error: %v", err)
			}
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(actor)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	var active int
	require.NoError(t, store.WithActor(context.Background(), domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		return tx.(*repos).q.QueryRow(ctx, `SELECT count(*) FROM loans WHERE book_id = $1 AND returned_at IS NULL`, book).Scan(&active)
	}))
	assert.Equal(t, 1, active)
	_ = db
}

func TestLoans_UniqueIndexCatchesLoanHiddenByRLS(t *testing.T) {
	db, store := openTestStore(t)
	requireRLS(t, db)
	book := createBook(t, store, "Emma")
	alice := createUser(t, store, "alice@example.com", domain.RoleUser)
	bob := createUser(t, store, "bob@example.com", domain.RoleUser)
	loans := service.NewLoanService(store, nil, 0, zerolog.Nop())
	ctx := context.Background()

	aliceLoan, err := loans.Create(ctx, alice, ports.CreateLoanInput{BookID: book})
	require.NoError(t, err)

	// Bob cannot see Alice's loan, so only the index can stop him.
	err = store.WithActor(ctx, bob, func(ctx context.Context, tx ports.Tx) error {
		_, err := tx.Loans().FindActiveByBookID(ctx, book)
		return err
	})
	require.ErrorIs(t, err, domain.ErrLoanNotFound)

	_, err = loans.Create(ctx, bob, ports.CreateLoanInput{BookID: book})
	require.ErrorIs(t, err, domain.ErrBookAlreadyLoaned)

	_, err = loans.Get(ctx, bob, aliceLoan.ID)
	require.ErrorIs(t, err, domain.ErrLoanNotFound)

	returned, err := loans.Return(ctx, alice, aliceLoan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanReturned, returned.Status)

	_, err = loans.Return(ctx, alice, aliceLoan.ID)
	require.ErrorIs(t, err, domain.ErrLoanAlreadyReturned)
}

func TestLoans_ReturnByOtherUserIsForbidden(t *testing.T) {
	db, store := openTestStore(t)
	requireRLS(t, db)
	book := createBook(t, store, "Persuasion")
	alice := createUser(t, store, "alice@example.com", domain.RoleUser)
	bob := createUser(t, store, "bob@example.com", domain.RoleUser)
	loans := service.NewLoanService(store, nil, 0, zerolog.Nop())
	ctx := context.Background()

	aliceLoan, err := loans.Create(ctx, alice, ports.CreateLoanInput{BookID: book})
	require.NoError(t, err)

	_, err = loans.Return(ctx, bob, aliceLoan.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	_, err = loans.Return(ctx, bob, aliceLoan.ID+1000)
	require.ErrorIs(t, err, domain.ErrLoanNotFound)

	// The elevated lookup must not leak: bob still reads nothing afterwards.
	err = store.WithActor(ctx, bob, func(ctx context.Context, tx ports.Tx) error {
		if _, err := tx.Loans().BorrowerOf(ctx, aliceLoan.ID); err != nil {
			return err
		}
		_, err := tx.Loans().FindByID(ctx, aliceLoan.ID)
		return err
	})
	require.ErrorIs(t, err, domain.ErrLoanNotFound)

	loan, err := loans.Get(ctx, alice, aliceLoan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanOngoing, loan.Status)
}

func TestCards_MaxSerialNumberIgnoresNonNumericSuffixes(t *testing.T) {
	_, store := openTestStore(t)
	seedCards(t, store, "BB0002", "BB0010", "BBX1", "BB12A", "ZZ0099")

	var highest int
	require.NoError(t, store.WithActor(context.Background(), domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		var err error
		highest, err = tx.Cards().MaxSerialNumber(ctx, "BB")
		return err
	}))
	assert.Equal(t, 10, highest)
}

func TestCards_UserSeesOnlyOwnCard(t *testing.T) {
	db, store := openTestStore(t)
	requireRLS(t, db)
	seedCards(t, store, "BB0001", "BB0002")
	alice := createUser(t, store, "alice@example.com", domain.RoleUser)
	ctx := context.Background()

	require.NoError(t, store.WithActor(ctx, domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		free, err := tx.Cards().FindFirstFree(ctx)
		if err != nil {
			return err
		}
		_, err = tx.Cards().Assign(ctx, free.ID, alice.UserID, time.Now())
		return err
	}))

	var visible int64
	require.NoError(t, store.WithActor(ctx, alice, func(ctx context.Context, tx ports.Tx) error {
		_, total, err := tx.Cards().List(ctx, domain.CardFilter{})
		visible = total
		return err
	}))
	assert.Equal(t, int64(1), visible)
}

func TestBooks_SearchByTitleAndISBN(t *testing.T) {
	_, store := openTestStore(t)
	ctx := context.Background()
	isbn := "9780441013593"

	require.NoError(t, store.WithActor(ctx, domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
		dune := &domain.Book{Title: "Dune", ISBN: &isbn, Description: "Desert planet"}
		if err := tx.Books().Create(ctx, dune); err != nil {
			return err
		}
		herbert := &domain.Author{FirstName: "Frank", LastName: "Herbert"}
		if err := tx.Authors().Create(ctx, herbert); err != nil {
			return err
		}
		if err := tx.Books().AttachAuthor(ctx, dune.ID, herbert.ID); err != nil {
			return err
		}
		return tx.Books().Create(ctx, &domain.Book{Title: "Emma"})
	}))

	for _, q := range []string{"dune", "herbert", "978-0-441-01359-3"} {
		var books []*domain.Book
		require.NoError(t, store.WithActor(ctx, domain.SystemActor, func(ctx context.Context, tx ports.Tx) error {
			var err error
			books, _, err = tx.Books().Search(ctx, domain.BookQuery{Q: q})
			return err
		}))
		require.Len(t, books, 1, "query %q", q)
		assert.Equal(t, "Dune", books[0].Title)
		require.Len(t, books[0].Authors, 1)
	}
}

type plainHasher struct{}

func (plainHasher) Hash(p string) (string, error) { return "plain:" + p, nil }
func (plainHasher) Compare(h, p string) error {
	if h != "plain:"+p {
		return errors.New("mismatch")
	}
	return nil
}

type plainSigner struct{}

func (plainSigner) Sign(*domain.User) (string, error) { return "token", nil }
