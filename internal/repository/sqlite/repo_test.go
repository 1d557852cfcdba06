package sqlite

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/drivebox/internal/domain"
)

// newTestDB creates a migrated in-memory database.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	ctx := context.Background()
	db, err := NewDB(ctx, DefaultConfig(":memory:"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(ctx))
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *domain.User {
	t.Helper()

	user := domain.NewUser(username, "hashed-password")
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewUserRepository(db)

	t.Run("assigns an id and persists", func(t *testing.T) {
		user := domain.NewUser("alice", "hash-a")
		require.NoError(t, repo.Create(ctx, user))
		require.NotZero(t, user.ID)

		got, err := repo.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, user.ID, got.ID)
		require.Equal(t, "hash-a", got.PasswordHash)
	})

	t.Run("enforces username uniqueness", func(t *testing.T) {
		err := repo.Create(ctx, domain.NewUser("alice", "hash-b"))
		require.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	})

	t.Run("unknown username is not found", func(t *testing.T) {
		_, err := repo.GetByUsername(ctx, "nobody")
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestUserRepository_List(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewUserRepository(db)

	createTestUser(t, db, "alice")
	createTestUser(t, db, "bob")

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	// Insertion order.
	require.Equal(t, "alice", users[0].Username)
	require.Equal(t, "bob", users[1].Username)

	exists, err := repo.ExistsByUsername(ctx, "bob")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = repo.ExistsByUsername(ctx, "carol")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestUserRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewUserRepository(db)

	user := createTestUser(t, db, "alice")

	require.NoError(t, repo.Delete(ctx, user.ID))
	require.ErrorIs(t, repo.Delete(ctx, user.ID), domain.ErrUserNotFound)

	_, err := repo.GetByID(ctx, user.ID)
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestFileRepository_OwnershipScoping(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewFileRepository(db)

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	file := domain.NewFile(alice.ID, "report.pdf", "application/pdf", 1024)
	require.NoError(t, repo.Create(ctx, file))
	require.NotZero(t, file.ID)

	t.Run("owner lookups succeed", func(t *testing.T) {
		got, err := repo.GetByIDAndOwner(ctx, file.ID, alice.ID)
		require.NoError(t, err)
		require.Equal(t, "report.pdf", got.OriginalName)

		got, err = repo.GetByStorageNameAndOwner(ctx, file.StorageName, alice.ID)
		require.NoError(t, err)
		require.Equal(t, file.ID, got.ID)
	})

	t.Run("other users cannot see the file", func(t *testing.T) {
		_, err := repo.GetByIDAndOwner(ctx, file.ID, bob.ID)
		require.ErrorIs(t, err, domain.ErrFileNotFound)

		_, err = repo.GetByStorageNameAndOwner(ctx, file.StorageName, bob.ID)
		require.ErrorIs(t, err, domain.ErrFileNotFound)

		files, err := repo.ListByOwner(ctx, bob.ID)
		require.NoError(t, err)
		require.Empty(t, files)
	})
}

func TestFileRepository_ListByOwner(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewFileRepository(db)

	alice := createTestUser(t, db, "alice")

	first := domain.NewFile(alice.ID, "a.txt", "text/plain", 1)
	second := domain.NewFile(alice.ID, "b.txt", "text/plain", 2)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	files, err := repo.ListByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)

	// Upload order.
	require.Equal(t, "a.txt", files[0].OriginalName)
	require.Equal(t, "b.txt", files[1].OriginalName)
}

func TestFileRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewFileRepository(db)

	alice := createTestUser(t, db, "alice")

	file := domain.NewFile(alice.ID, "a.txt", "text/plain", 1)
	require.NoError(t, repo.Create(ctx, file))

	require.NoError(t, repo.Delete(ctx, file.ID))
	require.ErrorIs(t, repo.Delete(ctx, file.ID), domain.ErrFileNotFound)
}

func TestFileRepository_CascadeOnUserDelete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	userRepo := NewUserRepository(db)
	fileRepo := NewFileRepository(db)

	alice := createTestUser(t, db, "alice")
	file := domain.NewFile(alice.ID, "a.txt", "text/plain", 1)
	require.NoError(t, fileRepo.Create(ctx, file))

	require.NoError(t, userRepo.Delete(ctx, alice.ID))

	_, err := fileRepo.GetByIDAndOwner(ctx, file.ID, alice.ID)
	require.ErrorIs(t, err, domain.ErrFileNotFound)
}
