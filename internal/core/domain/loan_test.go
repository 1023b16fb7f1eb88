package domain

import (
	"errors"
	"testing"
	"time"
)

func newOngoingLoan(due *time.Time) *Loan {
	return &Loan{ID: 1, UserID: 7, BookID: 42, Status: LoanOngoing, DueAt: due}
}

func TestLoan_Return_AtDueDateIsNotLate(t *testing.T) {
	due := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	loan := newOngoingLoan(&due)

	if err := loan.Return(due); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loan.Status != LoanReturned {
		t.Fatalf("expected status %s, got %s", LoanReturned, loan.Status)
	}
	if loan.ReturnedAt == nil || !loan.ReturnedAt.Equal(due) {
		t.Fatalf("expected returned_at %v, got %v", due, loan.ReturnedAt)
	}
}

func TestLoan_Return_OneSecondAfterDueIsLate(t *testing.T) {
	due := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	loan := newOngoingLoan(&due)

	if err := loan.Return(due.Add(time.Second)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loan.Status != LoanLate {
		t.Fatalf("expected status %s, got %s", LoanLate, loan.Status)
	}
}

func TestLoan_Return_WithoutDueDateNeverLate(t *testing.T) {
	loan := newOngoingLoan(nil)

	if err := loan.Return(time.Now().Add(1000 * time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loan.Status != LoanReturned {
		t.Fatalf("expected status %s, got %s", LoanReturned, loan.Status)
	}
}

func TestLoan_Return_Twice(t *testing.T) {
	due := time.Now().Add(time.Hour)
	loan := newOngoingLoan(&due)

	first := time.Now()
	if err := loan.Return(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := loan.Return(first.Add(2 * time.Hour))
	if !errors.Is(err, ErrLoanAlreadyReturned) {
		t.Fatalf("expected ErrLoanAlreadyReturned, got %v", err)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected kind ErrInvalidState, got %v", err)
	}
	if !loan.ReturnedAt.Equal(first) || loan.Status != LoanReturned {
		t.Fatalf("second return must not change the loan: %+v", loan)
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{ErrNoFreeCard, ErrResourceExhausted},
		{ErrEmailTaken, ErrConflict},
		{ErrInvalidCredentials, ErrUnauthorized},
		{ErrBookAlreadyLoaned, ErrInvalidState},
		{Invalid("bad"), ErrInvalidInput},
		{errors.New("boom"), nil},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.kind {
			t.Errorf("Kind(%v) = %v, want %v", tc.err, got, tc.kind)
		}
	}
}

func TestSplitAuthorName(t *testing.T) {
	first, last := SplitAuthorName("  Ursula  K. Le   Guin ")
	if first != "Ursula K. Le" || last != "Guin" {
		t.Fatalf("got %q %q", first, last)
	}
	first, last = SplitAuthorName("Homer")
	if first != "" || last != "Homer" {
		t.Fatalf("got %q %q", first, last)
	}
}

func TestNormalizeISBN(t *testing.T) {
	cases := map[string]string{
		"978-0-441-01359-3": "9780441013593",
		"0 441 01359 x":     "044101359X",
	}
	for in, want := range cases {
		got, err := NormalizeISBN(in)
		if err != nil || got != want {
			t.Errorf("NormalizeISBN(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, bad := range []string{"", "12345", "97804410135X3", "abc0441013593"} {
		if _, err := NormalizeISBN(bad); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("NormalizeISBN(%q) expected invalid input, got %v", bad, err)
		}
	}
}

func TestRestore(t *testing.T) {
	err := Restore(KindName(ErrCatalogNoMatch), ErrCatalogNoMatch.Error())
	if !errors.Is(err, ErrNotFound) || err.Error() != "no catalog record found" {
		t.Fatalf("unexpected restored error: %v", err)
	}
	if !errors.Is(Restore("bogus", "x"), ErrInternal) {
		t.Fatalf("unknown kinds must restore as internal")
	}
}
