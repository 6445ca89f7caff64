package sqlgen_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/loom/internal/testmodels"
	"github.com/satishbabariya/loom/query/ast"
	"github.com/satishbabariya/loom/query/compiler"
	"github.com/satishbabariya/loom/query/sqlgen"
	"github.com/satishbabariya/loom/schema"
)

type fakeSaver struct {
	reg   *schema.Registry
	next  int
	saved []schema.Entity
	err   error
}

func (s *fakeSaver) Save(_ context.Context, e schema.Entity) error {
	if s.err != nil {
		return s.err
	}
	d, err := s.reg.Lookup(e)
	if err != nil {
		return err
	}
	s.next++
	s.saved = append(s.saved, e)
	return d.SetIdentifier(e, s.next)
}

func render(t *testing.T, reg *schema.Registry, state *ast.State) sqlgen.Statement {
	t.Helper()
	scope, err := compiler.Compile(reg, state)
	require.NoError(t, err)
	return sqlgen.NewGenerator(reg, nil).Render(context.Background(), state, scope)
}

func TestRender_SelectGolden(t *testing.T) {
	reg := testmodels.NewRegistry()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	tests := []struct {
		name  string
		state ast.State
	}{
		{
			name:  "select_all",
			state: ast.State{Model: "Package", Alias: "p"},
		},
		{
			name: "select_joins",
			state: ast.State{
				Model: "Package",
				Alias: "p",
				Joins: []ast.Join{
					{Kind: ast.LeftJoin, Model: "User", Alias: "u", Conditions: []ast.Condition{ast.MustParseCondition("p.owner = u.id")}},
					{Kind: ast.InnerJoin, Model: "PackageType", Alias: "pt", Conditions: []ast.Condition{ast.MustParseCondition("p.packageType = pt.id")}},
					{Kind: ast.InnerJoin, Model: "Role", Alias: "r", Conditions: []ast.Condition{
						ast.MustParseCondition("u.role = r.id"),
						ast.MustParseCondition("r.handle != 'guest'"),
					}},
				},
				Predicates: []ast.Predicate{
					{Operator: ast.NotEquals, Ref: ast.ParseRef("r.handle"), Values: []any{"admin"}},
				},
				Orders: []ast.OrderBy{
					{Ref: ast.ParseRef("u.username"), Direction: "DESC"},
					{Ref: ast.ParseRef("p.id"), Direction: "ASC"},
				},
				Limit: 10,
			},
		},
		{
			name: "select_join_table",
			state: ast.State{
				Model:   "Role",
				Alias:   "r",
				Selects: []string{"r.name", "pm.*"},
				Joins:   []ast.Join{{Kind: ast.LeftJoin, Model: "Permission", Alias: "pm"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := render(t, reg, &tt.state)
			require.NoError(t, stmt.Err)
			g.Assert(t, tt.name, []byte(stmt.SQL))
		})
	}
}

func TestRender_EmptyLists(t *testing.T) {
	reg := testmodels.NewRegistry()
	stmt := render(t, reg, &ast.State{
		Model:   "Package",
		Alias:   "p",
		Selects: []string{"id"},
		Predicates: []ast.Predicate{
			{Operator: ast.In, Ref: ast.ParseRef("p.id")},
			{Operator: ast.NotIn, Ref: ast.ParseRef("p.owner")},
			{Operator: ast.Equals, Ref: ast.ParseRef("name"), Values: []any{"a"}},
		},
	})

	require.NoError(t, stmt.Err)
	assert.Equal(t, "SELECT p.intPackageId AS p_id FROM Application.tblPackage p WHERE (1=0) AND (1=1) AND p.strPackageName = ?", stmt.SQL)
	assert.Equal(t, []any{"a"}, stmt.Args)
}

func TestRender_IncompleteJoin(t *testing.T) {
	reg := testmodels.NewRegistry()
	stmt := render(t, reg, &ast.State{
		Model: "Package",
		Alias: "p",
		Joins: []ast.Join{{Kind: ast.InnerJoin, Model: "Draft", Alias: "d", Conditions: []ast.Condition{ast.MustParseCondition("p.id = d.id")}}},
	})

	assert.True(t, stmt.Empty())
	assert.ErrorIs(t, stmt.Err, sqlgen.ErrIncompleteMetadata)
}

func TestRender_SelectWithoutScope(t *testing.T) {
	reg := testmodels.NewRegistry()
	stmt := sqlgen.NewGenerator(reg, nil).Render(context.Background(), &ast.State{Model: "Package", Alias: "p"}, nil)
	assert.ErrorIs(t, stmt.Err, sqlgen.ErrNoScope)
}

func TestRender_Insert(t *testing.T) {
	reg := testmodels.NewRegistry()
	published := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)
	notes := "first cut"

	tests := []struct {
		name   string
		entity schema.Entity
		sql    string
		args   []any
	}{
		{
			name: "release",
			entity: &testmodels.Release{
				Package:     &testmodels.Package{ID: 7},
				Version:     "1.0.0",
				PublishedAt: published,
				Stable:      true,
				Notes:       &notes,
			},
			sql:  "INSERT INTO Application.tblRelease (intPackageId,strVersion,dtmPublished,bitStable,strNotes) VALUES (?,?,?,?,?)",
			args: []any{7, "1.0.0", "2024-03-01 14:30:00", 1, "first cut"},
		},
		{
			name:   "nil association and pointer",
			entity: &testmodels.Release{Version: "0.1.0", PublishedAt: published},
			sql:    "INSERT INTO Application.tblRelease (intPackageId,strVersion,dtmPublished,bitStable,strNotes) VALUES (?,?,?,?,?)",
			args:   []any{nil, "0.1.0", "2024-03-01 14:30:00", 0, nil},
		},
		{
			name:   "no identifier",
			entity: &testmodels.AuditEntry{Message: "login"},
			sql:    "INSERT INTO Security.tblAudit (strMessage) VALUES (?)",
			args:   []any{"login"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := sqlgen.NewGenerator(reg, nil).Render(context.Background(), &ast.State{Insert: tt.entity}, nil)
			require.NoError(t, stmt.Err)
			assert.Equal(t, tt.sql, stmt.SQL)
			assert.Equal(t, tt.args, stmt.Args)
		})
	}
}

func TestRender_InsertCascade(t *testing.T) {
	reg := testmodels.NewRegistry()
	saver := &fakeSaver{reg: reg, next: 41}
	pkg := &testmodels.Package{Name: "loom", PackageType: &testmodels.PackageType{ID: 3}}

	stmt := sqlgen.NewGenerator(reg, saver).Render(context.Background(), &ast.State{
		Insert: &testmodels.Release{Package: pkg, Version: "2.0.0"},
	}, nil)

	require.NoError(t, stmt.Err)
	assert.Equal(t, 42, pkg.ID)
	assert.Equal(t, []schema.Entity{pkg}, saver.saved)
	assert.Equal(t, 42, stmt.Args[0])
}

func TestRender_InsertCascadeFailures(t *testing.T) {
	reg := testmodels.NewRegistry()
	release := func() *ast.State {
		return &ast.State{Insert: &testmodels.Release{Package: &testmodels.Package{Name: "loom"}}}
	}

	t.Run("no saver", func(t *testing.T) {
		stmt := sqlgen.NewGenerator(reg, nil).Render(context.Background(), release(), nil)
		assert.True(t, stmt.Empty())
		assert.ErrorIs(t, stmt.Err, sqlgen.ErrNoSaver)
	})

	t.Run("saver error", func(t *testing.T) {
		boom := errors.New("boom")
		stmt := sqlgen.NewGenerator(reg, &fakeSaver{reg: reg, err: boom}).Render(context.Background(), release(), nil)
		assert.ErrorIs(t, stmt.Err, boom)
	})

	t.Run("saver assigns nothing", func(t *testing.T) {
		stmt := sqlgen.NewGenerator(reg, &fakeSaver{reg: reg, next: -1}).Render(context.Background(), release(), nil)
		assert.ErrorIs(t, stmt.Err, sqlgen.ErrUnsavedReference)
	})
}

// renderingSaver saves by rendering the insert with the same generator.
type renderingSaver struct {
	gen   *sqlgen.Generator
	saves int
}

func (s *renderingSaver) Save(ctx context.Context, e schema.Entity) error {
	s.saves++
	return s.gen.Render(ctx, &ast.State{Insert: e}, nil).Err
}

func TestRender_InsertCascadeCycle(t *testing.T) {
	reg := schema.NewRegistry()
	require.NoError(t, schema.DefineRecord(reg, schema.RecordDefinition{
		Name: "Husband", Schema: "Family", Table: "tblHusband",
		Fields: []schema.RecordField{
			{Name: "id", Column: "intHusbandId", ID: true, Type: schema.TypeInt},
			{Name: "wife", Column: "intWifeId", Type: schema.TypeRef, Target: "Wife"},
		},
	}))
	require.NoError(t, schema.DefineRecord(reg, schema.RecordDefinition{
		Name: "Wife", Schema: "Family", Table: "tblWife",
		Fields: []schema.RecordField{
			{Name: "id", Column: "intWifeId", ID: true, Type: schema.TypeInt},
			{Name: "husband", Column: "intHusbandId", Type: schema.TypeRef, Target: "Husband"},
		},
	}))

	husband, wife := schema.NewRecord("Husband"), schema.NewRecord("Wife")
	husband.Set("wife", wife)
	wife.Set("husband", husband)

	saver := &renderingSaver{}
	saver.gen = sqlgen.NewGenerator(reg, saver)

	stmt := saver.gen.Render(context.Background(), &ast.State{Insert: husband}, nil)
	assert.True(t, stmt.Empty())
	assert.ErrorIs(t, stmt.Err, sqlgen.ErrReferenceCycle)
	assert.Equal(t, 2, saver.saves)

	wife.Set("husband", nil)
	stmt = saver.gen.Render(context.Background(), &ast.State{Insert: husband}, nil)
	assert.ErrorIs(t, stmt.Err, sqlgen.ErrUnsavedReference)
}

func TestRender_Update(t *testing.T) {
	reg := testmodels.NewRegistry()
	published := time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		entity schema.Entity
		sql    string
		args   []any
		err    error
	}{
		{
			name:   "skips nil pointers and associations",
			entity: &testmodels.Release{ID: 5, Version: "1.0.1", PublishedAt: published, Stable: true},
			sql:    "UPDATE Application.tblRelease SET strVersion = ?, dtmPublished = ?, bitStable = ? WHERE intReleaseId = ?",
			args:   []any{"1.0.1", "2024-03-01 14:30:00", 1, int64(5)},
		},
		{
			name:   "association identifier",
			entity: &testmodels.Package{ID: 3, Name: "loom", PackageType: &testmodels.PackageType{ID: 2}},
			sql:    "UPDATE Application.tblPackage SET strPackageName = ?, intPackageTypeId = ? WHERE intPackageId = ?",
			args:   []any{"loom", 2, 3},
		},
		{
			name:   "no identifier",
			entity: &testmodels.AuditEntry{Message: "x"},
			err:    schema.ErrNoIdentifier,
		},
		{
			name:   "no table",
			entity: &testmodels.Draft{ID: 1, Body: "x"},
			err:    sqlgen.ErrIncompleteMetadata,
		},
		{
			name:   "unregistered",
			entity: &testmodels.Unregistered{},
			err:    schema.ErrUnknownEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := sqlgen.NewGenerator(reg, nil).Render(context.Background(), &ast.State{Update: tt.entity}, nil)
			if tt.err != nil {
				assert.ErrorIs(t, stmt.Err, tt.err)
				assert.True(t, stmt.Empty())
				return
			}
			require.NoError(t, stmt.Err)
			assert.Equal(t, tt.sql, stmt.SQL)
			assert.Equal(t, tt.args, stmt.Args)
		})
	}
}

func TestParam(t *testing.T) {
	s := "x"
	var nilString *string

	assert.Nil(t, sqlgen.Param(nil))
	assert.Nil(t, sqlgen.Param(nilString))
	assert.Equal(t, "x", sqlgen.Param(&s))
	assert.Equal(t, 1, sqlgen.Param(true))
	assert.Equal(t, 0, sqlgen.Param(false))
	assert.Equal(t, "2020-01-02 03:04:05", sqlgen.Param(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, 12, sqlgen.Param(12))
}

func TestSelectList(t *testing.T) {
	reg := testmodels.NewRegistry()
	scope, err := compiler.Compile(reg, &ast.State{
		Model: "Package",
		Alias: "p",
		Joins: []ast.Join{{Kind: ast.InnerJoin, Model: "PackageType", Alias: "pt", Conditions: []ast.Condition{ast.MustParseCondition("p.packageType = pt.id")}}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"pt.strPackageTypeName AS pt_name", "p.intOwnerId AS p_owner"},
		sqlgen.SelectList(scope, []string{"pt.name", "owner"}))
	assert.Len(t, sqlgen.SelectList(scope, []string{"*"}), 6)
	assert.Equal(t, []string{"pt.intPackageTypeId AS pt_id", "pt.strPackageTypeName AS pt_name"},
		sqlgen.SelectList(scope, []string{"pt.*"}))
}
