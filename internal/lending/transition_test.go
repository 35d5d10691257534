// internal/lending/transition_test.go
package lending

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"vedavault/internal/authz"
	"vedavault/internal/catalog"
)

func TestApprovalEffects(t *testing.T) {
	effect, err := Transition(StatusPending, StatusApproved, authz.Owner)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusBorrowed, effect.BookStatus)
	assert.Equal(t, catalog.StatusAvailable, effect.BookExpect)
	assert.True(t, effect.SetLendDates)
	assert.False(t, effect.SetReturnDate)
}

func TestRejectionHasNoEffects(t *testing.T) {
	effect, err := Transition(StatusPending, StatusRejected, authz.Owner)
	require.NoError(t, err)
	assert.Equal(t, Effect{}, effect)
}

func TestCompletionEffects(t *testing.T) {
	effect, err := Transition(StatusApproved, StatusCompleted, authz.Owner)
	require.NoError(t, err)
	assert.Equal(t, catalog.StatusAvailable, effect.BookStatus)
	assert.Equal(t, catalog.StatusBorrowed, effect.BookExpect)
	assert.True(t, effect.SetReturnDate)
	assert.False(t, effect.SetLendDates)
}

func TestOnlyOwnerDrivesTransitions(t *testing.T) {
	for _, rel := range []authz.Relationship{authz.Borrower, authz.Stranger, authz.Anyone} {
		_, err := Transition(StatusPending, StatusApproved, rel)
		assert.ErrorIs(t, err, authz.ErrDenied, "relationship %s", rel)
	}
}

func TestTerminalStates(t *testing.T) {
	for _, from := range []Status{StatusRejected, StatusCompleted} {
		for _, to := range []Status{StatusPending, StatusApproved, StatusRejected, StatusCompleted} {
			_, err := Transition(from, to, authz.Owner)
			assert.ErrorIs(t, err, ErrIllegalTransition, "%s -> %s", from, to)
		}
	}
}

// TestTransitionTableIsClosed checks, over the whole input space, that
// the validator accepts exactly the three owner-driven edges and
// nothing else.
func TestTransitionTableIsClosed(t *testing.T) {
	statuses := []Status{StatusPending, StatusApproved, StatusRejected, StatusCompleted}
	rels := []authz.Relationship{authz.Owner, authz.Borrower, authz.Stranger, authz.Anyone}

	legal := map[[2]Status]bool{
		{StatusPending, StatusApproved}:   true,
		{StatusPending, StatusRejected}:   true,
		{StatusApproved, StatusCompleted}: true,
	}

	rapid.Check(t, func(t *rapid.T) {
		from := rapid.SampledFrom(statuses).Draw(t, "from")
		to := rapid.SampledFrom(statuses).Draw(t, "to")
		rel := rapid.SampledFrom(rels).Draw(t, "rel")

		effect, err := Transition(from, to, rel)

		if rel != authz.Owner {
			if err == nil {
				t.Fatalf("non-owner %s drove %s -> %s", rel, from, to)
			}
			return
		}
		if legal[[2]Status{from, to}] {
			if err != nil {
				t.Fatalf("legal transition %s -> %s rejected: %v", from, to, err)
			}
			// A book status change always carries its CAS precondition.
			if (effect.BookStatus == "") != (effect.BookExpect == "") {
				t.Fatalf("effect for %s -> %s has status without precondition", from, to)
			}
		} else if err == nil {
			t.Fatalf("illegal transition %s -> %s accepted", from, to)
		}
	})
}
