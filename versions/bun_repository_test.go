package versions

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-prefs/pkg/types"
)

type stepClock struct {
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	current := c.now
	c.now = c.now.Add(c.step)
	return current
}

func newTestVersionRepo(t *testing.T) *Repository {
	t.Helper()
	db := newTestVersionsDB(t)
	applyVersionsDDL(t, db)
	repo, err := NewRepository(RepositoryConfig{
		DB: db,
		Clock: &stepClock{
			now:  time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC),
			step: time.Second,
		},
	})
	require.NoError(t, err)
	return repo
}

func TestRepository_AppendDerivesVersionKey(t *testing.T) {
	ctx := context.Background()
	repo := newTestVersionRepo(t)

	ts := time.Date(2025, 4, 1, 9, 30, 15, 250*int(time.Millisecond), time.UTC)
	err := repo.Append(ctx, types.PreferenceVersion{
		UserID:        "user-1",
		PreferenceKey: "content.locale",
		Action:        types.VersionActionUpsert,
		NewValue:      `"en-GB"`,
		Timestamp:     ts,
	})
	require.NoError(t, err)

	expectedKey := "content.locale#2025-04-01T09:30:15.250Z"
	version, err := repo.GetVersion(ctx, "user-1", expectedKey)
	require.NoError(t, err)
	require.NotNil(t, version)
	require.Equal(t, types.VersionActionUpsert, version.Action)
	require.Equal(t, `"en-GB"`, version.NewValue)
	require.Empty(t, version.OldValue)
}

func TestRepository_AppendValidatesInput(t *testing.T) {
	ctx := context.Background()
	repo := newTestVersionRepo(t)

	err := repo.Append(ctx, types.PreferenceVersion{PreferenceKey: "a"})
	require.ErrorIs(t, err, types.ErrUserIDRequired)

	err = repo.Append(ctx, types.PreferenceVersion{UserID: "user-1"})
	require.Error(t, err)
}

func TestRepository_GetVersionMissing(t *testing.T) {
	ctx := context.Background()
	repo := newTestVersionRepo(t)

	version, err := repo.GetVersion(ctx, "user-1", "a#2025-01-01T00:00:00.000Z")
	require.NoError(t, err)
	require.Nil(t, version)

	version, err = repo.GetVersion(ctx, "", "")
	require.NoError(t, err)
	require.Nil(t, version)
}

func TestRepository_EmptyValuesRoundTripAsAbsent(t *testing.T) {
	ctx := context.Background()
	repo := newTestVersionRepo(t)

	ts := time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC)
	err := repo.Append(ctx, types.PreferenceVersion{
		UserID:        "user-1",
		PreferenceKey: "a",
		Action:        types.VersionActionUpsert,
		NewValue:      `1`,
		Timestamp:     ts,
	})
	require.NoError(t, err)

	version, err := repo.GetVersion(ctx, "user-1", FormatVersionKey("a", ts))
	require.NoError(t, err)
	require.NotNil(t, version)
	require.Empty(t, version.OldValue)
	require.Equal(t, `1`, version.NewValue)
}

func TestRepository_ListVersionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestVersionRepo(t)

	base := time.Date(2025, 4, 3, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := repo.Append(ctx, types.PreferenceVersion{
			UserID:        "user-1",
			PreferenceKey: "a",
			Action:        types.VersionActionUpsert,
			NewValue:      fmt.Sprintf("%d", i),
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	page, err := repo.ListVersions(ctx, types.VersionFilter{UserID: "user-1"})
	require.NoError(t, err)
	require.Len(t, page.Items, 5)
	require.Empty(t, page.NextToken)
	require.Equal(t, "4", page.Items[0].NewValue)
	require.Equal(t, "0", page.Items[4].NewValue)
}

func TestRepository_ListVersionsPagination(t *testing.T) {
	ctx := context.Background()
	repo := newTestVersionRepo(t)

	base := time.Date(2025, 4, 4, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := repo.Append(ctx, types.PreferenceVersion{
			UserID:        "user-1",
			PreferenceKey: "a",
			Action:        types.VersionActionUpsert,
			NewValue:      fmt.Sprintf("%d", i),
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	first, err := repo.ListVersions(ctx, types.VersionFilter{UserID: "user-1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextToken)
	require.Equal(t, "4", first.Items[0].NewValue)
	require.Equal(t, "3", first.Items[1].NewValue)

	second, err := repo.ListVersions(ctx, types.VersionFilter{
		UserID:    "user-1",
		Limit:     2,
		PageToken: first.NextToken,
	})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	require.NotEmpty(t, second.NextToken)
	require.Equal(t, "2", second.Items[0].NewValue)
	require.Equal(t, "1", second.Items[1].NewValue)

	last, err := repo.ListVersions(ctx, types.VersionFilter{
		UserID:    "user-1",
		Limit:     2,
		PageToken: second.NextToken,
	})
	require.NoError(t, err)
	require.Len(t, last.Items, 1)
	require.Empty(t, last.NextToken)
	require.Equal(t, "0", last.Items[0].NewValue)
}

func TestRepository_ListVersionsKeyFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestVersionRepo(t)

	base := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	keys := []string{"a", "a.b", "b"}
	for i, key := range keys {
		err := repo.Append(ctx, types.PreferenceVersion{
			UserID:        "user-1",
			PreferenceKey: key,
			Action:        types.VersionActionUpsert,
			NewValue:      `1`,
			Timestamp:     base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	page, err := repo.ListVersions(ctx, types.VersionFilter{UserID: "user-1", PreferenceKey: "a"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "a", page.Items[0].PreferenceKey)
}

func TestRepository_ListVersionsInvalidToken(t *testing.T) {
	ctx := context.Background()
	repo := newTestVersionRepo(t)

	_, err := repo.ListVersions(ctx, types.VersionFilter{UserID: "user-1", PageToken: "!!!not-base64!!!"})
	require.Error(t, err)
}

func TestRepository_ListVersionsRequiresUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestVersionRepo(t)

	_, err := repo.ListVersions(ctx, types.VersionFilter{})
	require.ErrorIs(t, err, types.ErrUserIDRequired)
}

func TestClampLimit(t *testing.T) {
	require.Equal(t, defaultFeedLimit, clampLimit(0))
	require.Equal(t, 1, clampLimit(-3))
	require.Equal(t, 7, clampLimit(7))
	require.Equal(t, maxFeedLimit, clampLimit(10_000))
}

func newTestVersionsDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open("sqlite3", ":memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
		_ = sqldb.Close()
	})
	return db
}

func applyVersionsDDL(t *testing.T, db *bun.DB) {
	content, err := os.ReadFile("../data/sql/migrations/sqlite/00004_preference_versions.up.sql")
	require.NoError(t, err)
	for _, stmt := range splitStatements(string(content)) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
}

func splitStatements(sql string) []string {
	lines := strings.Split(sql, "\n")
	var builder strings.Builder
	var statements []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		builder.WriteString(line)
		if strings.HasSuffix(line, ";") {
			statements = append(statements, strings.TrimSuffix(builder.String(), ";"))
			builder.Reset()
		} else {
			builder.WriteString(" ")
		}
	}
	if builder.Len() > 0 {
		statements = append(statements, builder.String())
	}
	return statements
}
