package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/loom/cli/internal/config"
	"github.com/satishbabariya/loom/cli/internal/ui"
	"github.com/satishbabariya/loom/internal/adapters/database"
	"github.com/satishbabariya/loom/schema"
)

const testModels = `version: "1.0"
models:
  - name: Package
    schema: Application
    table: tblPackage
    fields:
      - {name: id, column: intPackageId, id: true, type: int}
      - {name: name, column: strPackageName}
      - {name: packageType, column: intPackageTypeId, type: ref, target: PackageType}
  - name: PackageType
    schema: Application
    table: ublPackageType
    fields:
      - {name: id, column: intPackageTypeId, id: true, type: int}
      - {name: name, column: strPackageTypeName}
  - name: Role
    schema: Security
    table: ublRole
    fields:
      - {name: id, column: intRoleId, id: true, type: int}
      - {name: handle, column: strRoleHandle}
      - name: permissions
        type: collection
        target: Permission
        joinTable: {schema: Security, table: tblRolePermission, alias: rp, localColumn: intRoleId, foreignColumn: intPermissionId}
  - name: Permission
    schema: Security
    table: ublPermission
    fields:
      - {name: id, column: intPermissionId, id: true, type: int}
      - {name: handle, column: strPermissionHandle}
`

func execute(t *testing.T, fs afero.Fs, dir string, args ...string) (string, error) {
	t.Helper()
	pterm.DisableColor()

	var out bytes.Buffer
	prevFs, prevOut, prevErr := config.AppFs, ui.Output, ui.ErrOutput
	config.AppFs = fs
	ui.Output = &out
	ui.ErrOutput = &out
	t.Cleanup(func() {
		config.AppFs = prevFs
		ui.Output = prevOut
		ui.ErrOutput = prevErr
	})

	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--dir", dir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func modelsFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/app/models.yaml", []byte(testModels), 0644))
	return fs
}

func TestRender(t *testing.T) {
	out, err := execute(t, modelsFs(t), "/app", "render", "Package",
		"-a", "p",
		"-j", "PackageType:pt:p.packageType = pt.id",
		"-w", "pt.name=Library",
		"--where-in", "p.id=1,2",
		"-o", "p.name:desc",
		"-l", "5",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "FROM Application.tblPackage p INNER JOIN Application.ublPackageType pt ON p.intPackageTypeId = pt.intPackageTypeId")
	assert.Contains(t, out, "WHERE pt.strPackageTypeName = ? AND p.intPackageId IN (?, ?)")
	assert.Contains(t, out, "ORDER BY p.strPackageName DESC LIMIT 5")
	assert.Contains(t, out, `[1] "Library"`)
	assert.Contains(t, out, `[2] "1"`)
	assert.Contains(t, out, `[3] "2"`)
}

func TestRender_JoinTable(t *testing.T) {
	out, err := execute(t, modelsFs(t), "/app", "render", "Role", "--left-join", "Permission:pm", "--where-in", "pm.handle=")
	require.NoError(t, err)

	assert.Contains(t, out, "FROM Security.ublRole r")
	assert.Contains(t, out, "LEFT JOIN Security.tblRolePermission rp ON r.intRoleId = rp.intRoleId")
	assert.Contains(t, out, "LEFT JOIN Security.ublPermission pm ON rp.intPermissionId = pm.intPermissionId")
	assert.Contains(t, out, "(1=0)")
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		err  error
	}{
		{name: "unknown model", args: []string{"render", "Invoice"}, err: schema.ErrUnknownEntity},
		{name: "invalid join", args: []string{"render", "Package", "-j", "PackageType"}},
		{name: "invalid predicate", args: []string{"render", "Package", "-w", "p.name"}},
		{name: "missing model argument", args: []string{"render"}},
		{name: "missing models file", args: []string{"render", "Package", "-m", "/elsewhere/models.yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, modelsFs(t), "/app", tt.args...)
			require.Error(t, err)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

func TestModels(t *testing.T) {
	out, err := execute(t, modelsFs(t), "/app", "models")
	require.NoError(t, err)
	for _, want := range []string{"Package", "PackageType", "Application.ublPackageType", "intPackageTypeId", "Permission"} {
		assert.Contains(t, out, want)
	}
}

func TestModelsDescribe(t *testing.T) {
	out, err := execute(t, modelsFs(t), "/app", "models", "describe", "Role")
	require.NoError(t, err)
	assert.Contains(t, out, "Security.ublRole")
	assert.Contains(t, out, "strRoleHandle")
	assert.Contains(t, out, "Security.tblRolePermission")
	assert.Contains(t, out, "intPermissionId")

	out, err = execute(t, modelsFs(t), "/app", "models", "describe", "Package", "--markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "strPackageName")
	assert.Contains(t, out, "reference")

	_, err = execute(t, modelsFs(t), "/app", "models", "describe", "Invoice")
	assert.ErrorIs(t, err, schema.ErrUnknownEntity)
}

func TestInit(t *testing.T) {
	fs := afero.NewMemMapFs()

	out, err := execute(t, fs, "/app", "init", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Created /app/.env")
	assert.Contains(t, out, "Created /app/models.yaml")

	cfg, err := config.LoadFs(fs, "/app", func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Env["DATABASE_DRIVER"])
	assert.Equal(t, "127.0.0.1", cfg.Env["DATABASE_HOST"])
	assert.Equal(t, "3306", cfg.Env["DATABASE_PORT"])

	out, err = execute(t, fs, "/app", "models")
	require.NoError(t, err)
	assert.Contains(t, out, "Application.tblPackage")

	out, err = execute(t, fs, "/app", "init", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestInit_Prompts(t *testing.T) {
	prev := ask
	ask = func(qs []*survey.Question, answers *initAnswers) error {
		assert.Len(t, qs, 6)
		*answers = initAnswers{Driver: "postgres", Host: "db", Port: "5432", User: "app", Password: "secret", Name: "shop"}
		return nil
	}
	t.Cleanup(func() { ask = prev })

	fs := afero.NewMemMapFs()
	_, err := execute(t, fs, "/app", "init")
	require.NoError(t, err)

	cfg, err := config.LoadFs(fs, "/app", func(string) (string, bool) { return "", false })
	require.NoError(t, err)
	db, err := cfg.Database()
	require.NoError(t, err)
	assert.Equal(t, database.Config{Driver: "postgres", Host: "db", Port: 5432, User: "app", Password: "secret", Name: "shop"}, db)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, afero.NewMemMapFs(), "/app", "version", "--full")
	require.NoError(t, err)
	assert.Contains(t, out, "loom version")
	assert.Contains(t, out, schema.SupportedVersions)
}

const shopModels = `version: "1.0"
models:
  - name: Book
    schema: Shop
    table: tblBook
    fields:
      - {name: id, column: intBookId, id: true, type: int}
      - {name: title, column: strTitle}
      - {name: author, column: intAuthorId, type: ref, target: Author}
  - name: Author
    schema: Shop
    table: tblAuthor
    fields:
      - {name: id, column: intAuthorId, id: true, type: int}
      - {name: name, column: strName}
`

func setDatabaseEnv(t *testing.T, values map[string]string) {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "DATABASE_DRIVER", "DATABASE_HOST", "DATABASE_PORT",
		"DATABASE_USER", "DATABASE_PASSWORD", "DATABASE_NAME", "DATABASE_ATTACH"} {
		t.Setenv(key, values[key])
	}
}

func TestQuery_SQLite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, afero.WriteFile(afero.NewOsFs(), filepath.Join(dir, "models.yaml"), []byte(shopModels), 0644))

	mainDB := filepath.Join(dir, "main.db")
	shopDB := filepath.Join(dir, "shop.db")
	setDatabaseEnv(t, map[string]string{
		"DATABASE_DRIVER": "sqlite3",
		"DATABASE_URL":    mainDB,
		"DATABASE_ATTACH": "Shop=" + shopDB,
	})

	ctx := context.Background()
	seed := database.NewSQLite(database.Config{URL: mainDB, Attach: map[string]string{"Shop": shopDB}})
	require.NoError(t, seed.Connect(ctx))
	for _, stmt := range []string{
		"CREATE TABLE Shop.tblAuthor (intAuthorId INTEGER PRIMARY KEY, strName TEXT)",
		"CREATE TABLE Shop.tblBook (intBookId INTEGER PRIMARY KEY, strTitle TEXT, intAuthorId INTEGER)",
		"INSERT INTO Shop.tblAuthor VALUES (1, 'Ursula K. Le Guin')",
		"INSERT INTO Shop.tblBook VALUES (1, 'The Dispossessed', 1), (2, 'Beowulf', NULL)",
	} {
		_, err := seed.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	require.NoError(t, seed.Disconnect(ctx))

	args := []string{"query", "Book", "--left-join", "Author:a:b.author = a.id", "--order", "b.id"}

	out, err := execute(t, afero.NewOsFs(), dir, append(args, "--stats")...)
	require.NoError(t, err)
	assert.Contains(t, out, "The Dispossessed")
	assert.Contains(t, out, "Author#1")
	assert.Contains(t, out, "Beowulf")
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "select")

	out, err = execute(t, afero.NewOsFs(), dir, append(args, "--dump")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Ursula K. Le Guin")

	out, err = execute(t, afero.NewOsFs(), dir, "query", "Book", "-w", "b.title=Missing")
	require.NoError(t, err)
	assert.Contains(t, out, "No Book rows")

	t.Setenv("LOOM_TELEMETRY_TYPE", "noop")
	out, err = execute(t, afero.NewOsFs(), dir, append(args, "--stats")...)
	require.NoError(t, err)
	assert.Contains(t, out, "The Dispossessed")
	assert.Contains(t, out, "Statistics need telemetry.type memory")

	t.Setenv("LOOM_TELEMETRY_TYPE", "statsd")
	_, err = execute(t, afero.NewOsFs(), dir, args...)
	assert.ErrorContains(t, err, "unknown telemetry type")
}

func TestQuery_NoDatabase(t *testing.T) {
	setDatabaseEnv(t, nil)

	_, err := execute(t, modelsFs(t), "/app", "query", "Package")
	assert.ErrorIs(t, err, config.ErrNoDatabase)
}

func TestParseJoin(t *testing.T) {
	tests := []struct {
		raw        string
		model      string
		alias      string
		conditions []string
		wantErr    bool
	}{
		{raw: "Permission:pm", model: "Permission", alias: "pm"},
		{raw: "PackageType:pt:p.packageType = pt.id", model: "PackageType", alias: "pt", conditions: []string{"p.packageType = pt.id"}},
		{raw: "Role:r:u.role = r.id; r.handle != 'guest'", model: "Role", alias: "r", conditions: []string{"u.role = r.id", "r.handle != 'guest'"}},
		{raw: "Role", wantErr: true},
		{raw: ":r", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			model, alias, conditions, err := parseJoin(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.model, model)
			assert.Equal(t, tt.alias, alias)
			assert.Equal(t, tt.conditions, conditions)
		})
	}
}

func TestParseList(t *testing.T) {
	column, values, err := parseList("pt.name=Library,Tool")
	require.NoError(t, err)
	assert.Equal(t, "pt.name", column)
	assert.Equal(t, []any{"Library", "Tool"}, values)

	_, values, err = parseList("pt.name=")
	require.NoError(t, err)
	assert.Empty(t, values)

	_, _, err = parseList("pt.name")
	assert.Error(t, err)
}
