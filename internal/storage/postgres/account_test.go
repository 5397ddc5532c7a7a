package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestHashPasswordProducesVerifiableHash(t *testing.T) {
	hash, err := HashPassword("vault-keeper-9")
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "vault-keeper-9", hash, "hash must not echo the password")

	assert.True(t, CheckPassword("vault-keeper-9", hash))
	assert.False(t, CheckPassword("vault-keeper-8", hash))
}

func TestValidRoleKnowsAllThreeRoles(t *testing.T) {
	assert.True(t, ValidRole(RolePlayer))
	assert.True(t, ValidRole(RoleEditor))
	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole(""))
	assert.False(t, ValidRole("keeper"))
}

// Property: every hashed password verifies against its own hash.
func TestPropertyHashRoundTrips(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// bcrypt truncates input beyond 72 bytes; stay under it.
		password := rapid.StringMatching(`[a-zA-Z0-9!@#$%^&*]{1,64}`).Draw(t, "password")
		hash, err := HashPassword(password)
		if err != nil {
			t.Fatalf("HashPassword(%q): %v", password, err)
		}
		if !CheckPassword(password, hash) {
			t.Fatalf("password %q does not verify against its own hash", password)
		}
	})
}

// Property: ValidRole accepts exactly player, editor, and admin.
func TestPropertyValidRoleIsExact(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		role := rapid.StringMatching(`[a-z]{1,20}`).Draw(t, "role")
		want := role == RolePlayer || role == RoleEditor || role == RoleAdmin
		if got := ValidRole(role); got != want {
			t.Fatalf("ValidRole(%q) = %v, want %v", role, got, want)
		}
	})
}

// Property: hashes are salted, so even repeated inputs hash differently.
func TestPropertySaltedHashesDiffer(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p1 := rapid.StringMatching(`[a-zA-Z]{6,20}`).Draw(t, "password1")
		p2 := rapid.StringMatching(`[a-zA-Z]{6,20}`).Draw(t, "password2")

		h1, err := HashPassword(p1)
		require.NoError(t, err)
		h2, err := HashPassword(p2)
		require.NoError(t, err)

		assert.NotEqual(t, h1, h2, "bcrypt salts must make every hash unique")
	})
}

// Property: a different password never verifies.
func TestPropertyWrongPasswordRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		correct := rapid.StringMatching(`[a-zA-Z0-9]{6,30}`).Draw(t, "correct")
		wrong := rapid.StringMatching(`[a-zA-Z0-9]{6,30}`).Draw(t, "wrong")
		if correct == wrong {
			return
		}

		hash, err := HashPassword(correct)
		require.NoError(t, err)
		assert.False(t, CheckPassword(wrong, hash),
			"password %q must not match the hash of %q", wrong, correct)
	})
}
