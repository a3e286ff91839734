package accounts

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const testUUID = "3b241101-e2bb-4255-8caf-4136c566a962"

var accountRowColumns = []string{"id", "username", "email", "password_hash", "avatar",
	"avatar_public_id", "refresh_token", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func accountRow(ts time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(accountRowColumns).
		AddRow(testUUID, "alice_one", "alice@example.com", "hash", "http://img/a.png", "", nil, ts, ts)
}

func TestPostgres_FindByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`(?s)^SELECT\s+id,.*FROM\s+accounts\s+WHERE\s+email\s*=\s*\$1$`).
		WithArgs("alice@example.com").
		WillReturnRows(accountRow(ts))

	got, err := repo.FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if got.ID != testUUID || got.Username != "alice_one" || got.PasswordHash != "hash" || !got.CreatedAt.Equal(ts) {
		t.Fatalf("unexpected account: %+v", got)
	}
	if got.RefreshToken != "" {
		t.Fatalf("NULL refresh_token must scan as empty, got %q", got.RefreshToken)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgres_FindByUsername_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*WHERE\s+username\s*=\s*\$1$`).
		WithArgs("ghost_user").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByUsername(context.Background(), "ghost_user")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestPostgres_FindByID_InvalidIDSkipsQuery(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	_, err := repo.FindByID(context.Background(), "not-a-uuid")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected query: %v", err)
	}
}

func TestPostgres_FindByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*WHERE\s+id\s*=\s*\$1$`).
		WithArgs(testUUID).
		WillReturnError(errors.New("db down"))

	_, err := repo.FindByID(context.Background(), testUUID)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestPostgres_Insert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Now().UTC()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+accounts\s*\(username,\s*email,\s*password_hash,\s*avatar,\s*avatar_public_id\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+id,`).
		WithArgs("alice_one", "alice@example.com", "hash", "http://img/a.png", "").
		WillReturnRows(accountRow(ts))

	got, err := repo.Insert(context.Background(), &models.Account{
		Username: "alice_one", Email: "alice@example.com", PasswordHash: "hash", Avatar: "http://img/a.png",
	})
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if got.ID != testUUID {
		t.Fatalf("unexpected id: %q", got.ID)
	}
}

func TestPostgres_Insert_UniqueViolation(t *testing.T) {
	tests := []struct {
		constraint string
		field      string
	}{
		{"accounts_username_key", FieldUsername},
		{"accounts_email_key", FieldEmail},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectQuery(`INSERT\s+INTO\s+accounts`).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			_, err := repo.Insert(context.Background(), &models.Account{Username: "alice_one", Email: "alice@example.com"})
			var dup *DuplicateError
			if !errors.As(err, &dup) || dup.Field != tt.field {
				t.Fatalf("expected duplicate on %s, got %v", tt.field, err)
			}
			if !errors.Is(err, common.ErrorAlreadyExists) {
				t.Fatalf("expected common.ErrorAlreadyExists, got %v", err)
			}
		})
	}
}

func TestPostgres_Exists(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+accounts\s+WHERE\s+\(username\s*=\s*\$1\s+OR\s+email\s*=\s*\$2\)\s+AND\s+id\s*<>\s*\$3\)$`).
		WithArgs("alice_one", "alice@example.com", testUUID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), Filter{Username: "alice_one", Email: "alice@example.com", ExcludeID: testUUID})
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true, nil", ok, err)
	}

	mock.ExpectQuery(`(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+accounts\s+WHERE\s+\(email\s*=\s*\$1\)\)$`).
		WithArgs("bob@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err = repo.Exists(context.Background(), Filter{Email: "bob@example.com"})
	if err != nil || ok {
		t.Fatalf("Exists = %v, %v; want false, nil", ok, err)
	}

	ok, err = repo.Exists(context.Background(), Filter{})
	if err != nil || ok {
		t.Fatalf("empty filter: Exists = %v, %v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgres_Update_OnlySuppliedFields(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	email := "alice@new.com"
	mock.ExpectQuery(`(?s)^UPDATE\s+accounts\s+SET\s+email\s*=\s*\$1,\s*avatar\s*=\s*\$2,\s*avatar_public_id\s*=\s*\$3,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$4\s+RETURNING\s+id,`).
		WithArgs(email, "http://img/n.png", "avatars/n.png", testUUID).
		WillReturnRows(accountRow(time.Now()))

	_, err := repo.Update(context.Background(), testUUID, models.AccountUpdate{
		Email:  &email,
		Avatar: &models.AvatarRef{URL: "http://img/n.png", PublicID: "avatars/n.png"},
	})
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgres_Update_Missing(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	name := "new_name1"
	mock.ExpectQuery(`UPDATE\s+accounts`).WillReturnError(sql.ErrNoRows)

	_, err := repo.Update(context.Background(), testUUID, models.AccountUpdate{Username: &name})
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestPostgres_RefreshToken(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+refresh_token\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2`).
		WithArgs("tok", testUUID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.SetRefreshToken(context.Background(), testUUID, "tok"); err != nil {
		t.Fatalf("SetRefreshToken error: %v", err)
	}

	mock.ExpectExec(`UPDATE\s+accounts\s+SET\s+refresh_token\s*=\s*NULL\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs(testUUID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.ClearRefreshToken(context.Background(), testUUID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound for missing row, got %v", err)
	}

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*WHERE\s+id\s*=\s*\$1\s+AND\s+refresh_token\s*=\s*\$2$`).
		WithArgs(testUUID, "tok").
		WillReturnRows(sqlmock.NewRows(accountRowColumns).
			AddRow(testUUID, "alice_one", "alice@example.com", "hash", "", "", "tok", time.Now(), time.Now()))
	got, err := repo.FindByRefreshToken(context.Background(), testUUID, "tok")
	if err != nil {
		t.Fatalf("FindByRefreshToken error: %v", err)
	}
	if got.RefreshToken != "tok" {
		t.Fatalf("want refresh token tok, got %q", got.RefreshToken)
	}

	if _, err := repo.FindByRefreshToken(context.Background(), testUUID, ""); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("empty token must not match, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgres_Count(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\)\s+FROM\s+accounts`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(7)))

	n, err := repo.Count(context.Background())
	if err != nil || n != 7 {
		t.Fatalf("Count = %d, %v; want 7, nil", n, err)
	}
}
