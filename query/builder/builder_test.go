package builder_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/loom/internal/testmodels"
	"github.com/satishbabariya/loom/query/ast"
	"github.com/satishbabariya/loom/query/builder"
	"github.com/satishbabariya/loom/schema"
)

const (
	packageColumns     = "p.intPackageId AS p_id, p.strPackageName AS p_name, p.intPackageTypeId AS p_packageType, p.intOwnerId AS p_owner"
	packageTypeColumns = "pt.intPackageTypeId AS pt_id, pt.strPackageTypeName AS pt_name"
	userColumns        = "u.intUserId AS u_id, u.strUsername AS u_username, u.strEmail AS u_email, u.intRoleId AS u_role"
	roleColumns        = "r.intRoleId AS r_id, r.strRoleName AS r_name, r.strRoleHandle AS r_handle"

	fromPackage     = " FROM Application.tblPackage p"
	joinPackageType = " INNER JOIN Application.ublPackageType pt ON p.intPackageTypeId = pt.intPackageTypeId"
	joinUser        = " INNER JOIN Security.tblUser u ON p.intOwnerId = u.intUserId"
	joinRole        = " INNER JOIN Security.ublRole r ON u.intRoleId = r.intRoleId"
)

func newPackageBuilder(t *testing.T, reg *schema.Registry) *builder.Builder {
	t.Helper()
	b, err := builder.New(reg, "Package", "p")
	require.NoError(t, err)
	return b
}

func TestNew(t *testing.T) {
	reg := testmodels.NewRegistry()

	t.Run("by name", func(t *testing.T) {
		b, err := builder.New(reg, "Package", "p")
		require.NoError(t, err)
		assert.Equal(t, "p", b.Alias())
		assert.Equal(t, "Package", b.Entity().Name())
	})

	t.Run("by entity value", func(t *testing.T) {
		b, err := builder.New(reg, &testmodels.User{}, "u")
		require.NoError(t, err)
		assert.Equal(t, "User", b.Entity().Name())
	})

	t.Run("non-existent model", func(t *testing.T) {
		_, err := builder.New(reg, "invalid", "m")
		assert.ErrorIs(t, err, schema.ErrUnknownEntity)
	})

	t.Run("not an entity", func(t *testing.T) {
		_, err := builder.New(reg, &sql.DB{}, "dbc")
		assert.ErrorIs(t, err, schema.ErrNotEntity)
	})
}

func TestBuilder_Fluent(t *testing.T) {
	b := newPackageBuilder(t, testmodels.NewRegistry())
	assert.Same(t, b, b.Select("id", "name"))
	assert.Same(t, b, b.InnerJoin("PackageType", "pt", "p.id = pt.id"))
	assert.Same(t, b, b.LeftJoin("User", "u", "p.owner = u.id"))
	assert.Same(t, b, b.Where("p.id", 1).WhereNot("p.id", 2).WhereIn("p.id", 3).WhereNotIn("p.id", 4))
	assert.Same(t, b, b.OrderBy("p.id").Limit(1))
	assert.Same(t, b, b.Reset())
}

func TestBuilder_RenderSelect(t *testing.T) {
	reg := testmodels.NewRegistry()

	tests := []struct {
		name     string
		build    func(b *builder.Builder)
		expected string
		args     []any
	}{
		{
			name:     "all columns",
			build:    func(b *builder.Builder) {},
			expected: "SELECT " + packageColumns + fromPackage,
		},
		{
			name: "inner join with where in",
			build: func(b *builder.Builder) {
				b.InnerJoin("PackageType", "pt", "p.packageType = pt.id").
					WhereIn("pt.name", "Package Type A", "Package Type B")
			},
			expected: "SELECT " + packageColumns + ", " + packageTypeColumns + fromPackage + joinPackageType +
				" WHERE pt.strPackageTypeName IN (?, ?)",
			args: []any{"Package Type A", "Package Type B"},
		},
		{
			name:     "order by property",
			build:    func(b *builder.Builder) { b.OrderBy("p.id", "DESC") },
			expected: "SELECT " + packageColumns + fromPackage + " ORDER BY p.intPackageId DESC",
		},
		{
			name:     "order by column",
			build:    func(b *builder.Builder) { b.OrderBy("p.intPackageId", "DESC") },
			expected: "SELECT " + packageColumns + fromPackage + " ORDER BY p.intPackageId DESC",
		},
		{
			name:     "select properties",
			build:    func(b *builder.Builder) { b.Select("id", "name") },
			expected: "SELECT p.intPackageId AS p_id, p.strPackageName AS p_name" + fromPackage,
		},
		{
			name:     "select column and property",
			build:    func(b *builder.Builder) { b.Select("intPackageId", "name") },
			expected: "SELECT p.intPackageId AS p_id, p.strPackageName AS p_name" + fromPackage,
		},
		{
			name:     "select with where in",
			build:    func(b *builder.Builder) { b.Select("intPackageId", "name").WhereIn("p.id", 1, 2, 3) },
			expected: "SELECT p.intPackageId AS p_id, p.strPackageName AS p_name" + fromPackage + " WHERE p.intPackageId IN (?, ?, ?)",
			args:     []any{1, 2, 3},
		},
		{
			name: "select dotted property and join alias",
			build: func(b *builder.Builder) {
				b.Select("p.id", "pt").InnerJoin("PackageType", "pt", "p.packageType = pt.id")
			},
			expected: "SELECT p.intPackageId AS p_id, " + packageTypeColumns + fromPackage + joinPackageType,
		},
		{
			name: "join condition by columns",
			build: func(b *builder.Builder) {
				b.Select().InnerJoin("PackageType", "pt", "p.intPackageTypeId = pt.intPackageTypeId")
			},
			expected: "SELECT " + packageColumns + ", " + packageTypeColumns + fromPackage + joinPackageType,
		},
		{
			name: "join on a non-entity is dropped",
			build: func(b *builder.Builder) {
				b.Select("p.id").InnerJoin(testmodels.StandardModel{}, "sm", "p.sm = sm.id")
			},
			expected: "SELECT p.intPackageId AS p_id" + fromPackage,
		},
		{
			name: "join on an unregistered entity is dropped with its predicates",
			build: func(b *builder.Builder) {
				b.InnerJoin(&testmodels.Unregistered{}, "x", "p.id = x.id").Where("x.id", 5)
			},
			expected: "SELECT " + packageColumns + fromPackage,
		},
		{
			name:     "join without select",
			build:    func(b *builder.Builder) { b.InnerJoin("PackageType", "pt", "p.packageType = pt.id") },
			expected: "SELECT " + packageColumns + ", " + packageTypeColumns + fromPackage + joinPackageType,
		},
		{
			name: "select both aliases",
			build: func(b *builder.Builder) {
				b.Select("p", "pt").InnerJoin("PackageType", "pt", "p.packageType = pt.id")
			},
			expected: "SELECT " + packageColumns + ", " + packageTypeColumns + fromPackage + joinPackageType,
		},
		{
			name: "where on join property",
			build: func(b *builder.Builder) {
				b.Select().InnerJoin("PackageType", "pt", "p.intPackageTypeId = pt.intPackageTypeId").
					Where("pt.name", "Package Type A")
			},
			expected: "SELECT " + packageColumns + ", " + packageTypeColumns + fromPackage + joinPackageType +
				" WHERE pt.strPackageTypeName = ?",
			args: []any{"Package Type A"},
		},
		{
			name: "where on join column",
			build: func(b *builder.Builder) {
				b.Select().InnerJoin("PackageType", "pt", "p.intPackageTypeId = pt.intPackageTypeId").
					Where("pt.strPackageTypeName", "Package Type A")
			},
			expected: "SELECT " + packageColumns + ", " + packageTypeColumns + fromPackage + joinPackageType +
				" WHERE pt.strPackageTypeName = ?",
			args: []any{"Package Type A"},
		},
		{
			name:     "where on root property",
			build:    func(b *builder.Builder) { b.Select("id").Where("p.name", "Package B") },
			expected: "SELECT p.intPackageId AS p_id" + fromPackage + " WHERE p.strPackageName = ?",
			args:     []any{"Package B"},
		},
		{
			name:     "where on root column",
			build:    func(b *builder.Builder) { b.Select("id").Where("p.strPackageName", "Package B") },
			expected: "SELECT p.intPackageId AS p_id" + fromPackage + " WHERE p.strPackageName = ?",
			args:     []any{"Package B"},
		},
		{
			name:     "join user",
			build:    func(b *builder.Builder) { b.Select().InnerJoin(&testmodels.User{}, "u", "p.owner = u.id") },
			expected: "SELECT " + packageColumns + ", " + userColumns + fromPackage + joinUser,
		},
		{
			name: "chained joins",
			build: func(b *builder.Builder) {
				b.Select().InnerJoin("User", "u", "p.owner = u.id").InnerJoin("Role", "r", "u.role = r.id")
			},
			expected: "SELECT " + packageColumns + ", " + userColumns + ", " + roleColumns + fromPackage + joinUser + joinRole,
		},
		{
			name: "chained joins with limit",
			build: func(b *builder.Builder) {
				b.Select().InnerJoin("User", "u", "p.owner = u.id").InnerJoin("Role", "r", "u.role = r.id").Limit(1)
			},
			expected: "SELECT " + packageColumns + ", " + userColumns + ", " + roleColumns + fromPackage + joinUser + joinRole +
				" LIMIT 1",
		},
		{
			name: "default order direction",
			build: func(b *builder.Builder) {
				b.Select().InnerJoin("User", "u", "p.owner = u.id").InnerJoin("Role", "r", "u.role = r.id").
					OrderBy("u.id").Limit(1)
			},
			expected: "SELECT " + packageColumns + ", " + userColumns + ", " + roleColumns + fromPackage + joinUser + joinRole +
				" ORDER BY u.intUserId ASC LIMIT 1",
		},
		{
			name: "order by join column",
			build: func(b *builder.Builder) {
				b.Select().InnerJoin("User", "u", "p.owner = u.id").InnerJoin("Role", "r", "u.role = r.id").
					OrderBy("u.intUserId").Limit(1)
			},
			expected: "SELECT " + packageColumns + ", " + userColumns + ", " + roleColumns + fromPackage + joinUser + joinRole +
				" ORDER BY u.intUserId ASC LIMIT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newPackageBuilder(t, reg)
			tt.build(b)

			stmt := b.Render(context.Background())
			require.NoError(t, stmt.Err)
			assert.Equal(t, tt.expected, stmt.SQL)
			assert.Equal(t, tt.args, stmt.Args)
		})
	}
}

func TestBuilder_PredicateOrder(t *testing.T) {
	b := newPackageBuilder(t, testmodels.NewRegistry())
	stmt := b.Select("id").
		WhereIn("p.id", 1, 2).
		Where("p.name", "a").
		WhereNotIn("p.owner", builder.Values([]int{7, 8, 9})...).
		WhereNot("p.packageType", 4).
		Render(context.Background())

	require.NoError(t, stmt.Err)
	assert.Equal(t, "SELECT p.intPackageId AS p_id"+fromPackage+
		" WHERE p.intPackageId IN (?, ?) AND p.strPackageName = ? AND p.intOwnerId NOT IN (?, ?, ?) AND p.intPackageTypeId != ?", stmt.SQL)
	assert.Equal(t, []any{1, 2, "a", 7, 8, 9, 4}, stmt.Args)
}

func TestBuilder_WhereInSlice(t *testing.T) {
	tests := []struct {
		name     string
		apply    func(b *builder.Builder)
		expected string
		args     []any
	}{
		{
			name:     "typed slice",
			apply:    func(b *builder.Builder) { b.WhereIn("p.name", []string{"A", "B"}) },
			expected: " WHERE p.strPackageName IN (?, ?)",
			args:     []any{"A", "B"},
		},
		{
			name:     "array",
			apply:    func(b *builder.Builder) { b.WhereNotIn("p.id", [3]int{1, 2, 3}) },
			expected: " WHERE p.intPackageId NOT IN (?, ?, ?)",
			args:     []any{1, 2, 3},
		},
		{
			name:     "empty slice",
			apply:    func(b *builder.Builder) { b.WhereIn("p.id", []int{}) },
			expected: " WHERE (1=0)",
			args:     nil,
		},
		{
			name:     "bytes stay one value",
			apply:    func(b *builder.Builder) { b.WhereIn("p.name", []byte("loom")) },
			expected: " WHERE p.strPackageName IN (?)",
			args:     []any{[]byte("loom")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newPackageBuilder(t, testmodels.NewRegistry())
			b.Select("id")
			tt.apply(b)

			stmt := b.Render(context.Background())
			require.NoError(t, stmt.Err)
			assert.Equal(t, "SELECT p.intPackageId AS p_id"+fromPackage+tt.expected, stmt.SQL)
			if tt.args == nil {
				assert.Empty(t, stmt.Args)
			} else {
				assert.Equal(t, tt.args, stmt.Args)
			}
		})
	}
}

func TestBuilder_LeftJoin(t *testing.T) {
	b := newPackageBuilder(t, testmodels.NewRegistry())
	stmt := b.LeftJoin("User", "u", "p.owner = u.id").
		InnerJoin("PackageType", "pt", "p.packageType = pt.id").
		Where("u.username", "alice").
		Render(context.Background())

	require.NoError(t, stmt.Err)
	assert.Equal(t, "SELECT "+packageColumns+", "+packageTypeColumns+", "+userColumns+fromPackage+joinPackageType+
		" LEFT JOIN Security.tblUser u ON p.intOwnerId = u.intUserId WHERE u.strUsername = ?", stmt.SQL)
	assert.Equal(t, []any{"alice"}, stmt.Args)
}

func TestBuilder_JoinTable(t *testing.T) {
	reg := testmodels.NewRegistry()
	b, err := builder.New(reg, "Role", "r")
	require.NoError(t, err)

	stmt := b.InnerJoin("Permission", "pm").Where("pm.handle", "packages.read").Render(context.Background())
	require.NoError(t, stmt.Err)
	assert.Equal(t, "SELECT r.intRoleId AS r_id, r.strRoleName AS r_name, r.strRoleHandle AS r_handle, "+
		"pm.intPermissionId AS pm_id, pm.strPermissionName AS pm_name, pm.strPermissionHandle AS pm_handle "+
		"FROM Security.ublRole r "+
		"INNER JOIN Security.tblRolePermission rp ON r.intRoleId = rp.intRoleId "+
		"INNER JOIN Security.ublPermission pm ON rp.intPermissionId = pm.intPermissionId "+
		"WHERE pm.strPermissionHandle = ?", stmt.SQL)
	assert.Equal(t, []ast.Traversal{{Property: "permissions", Alias: "pm"}}, b.Traversals())
}

func TestBuilder_SelectPassThrough(t *testing.T) {
	b := newPackageBuilder(t, testmodels.NewRegistry())
	stmt := b.Select("COUNT(*) AS total", "p.unknown", "pt.id").Render(context.Background())
	require.NoError(t, stmt.Err)
	assert.Equal(t, "SELECT COUNT(*) AS total, p.unknown, pt.id"+fromPackage, stmt.SQL)
}

func TestBuilder_DegradesToEmpty(t *testing.T) {
	reg := testmodels.NewRegistry()

	b, err := builder.New(reg, "Draft", "d")
	require.NoError(t, err)
	stmt := b.Where("d.id", 1).Render(context.Background())
	assert.Empty(t, stmt.SQL)
	assert.True(t, stmt.Empty())
	assert.Error(t, stmt.Err)
}

func TestBuilder_RenderCaching(t *testing.T) {
	b := newPackageBuilder(t, testmodels.NewRegistry())
	b.Select("id").Where("p.id", 1)

	first := b.Render(context.Background())
	second := b.Render(context.Background())
	assert.Equal(t, first, second)
	assert.Equal(t, []any{1}, b.Args(context.Background()))

	b.Limit(2)
	assert.Equal(t, "SELECT p.intPackageId AS p_id"+fromPackage+" WHERE p.intPackageId = ? LIMIT 2", b.Render(context.Background()).SQL)

	b.Reset()
	assert.Equal(t, "SELECT "+packageColumns+fromPackage, b.Render(context.Background()).SQL)
	assert.Empty(t, b.Args(context.Background()))
}
