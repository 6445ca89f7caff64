// Package testmodels declares the entities shared by the package tests.
package testmodels

import (
	"time"

	"github.com/satishbabariya/loom/schema"
)

type Package struct {
	ID          int
	Name        string
	PackageType *PackageType
	Owner       *User
}

func (*Package) EntityName() string { return "Package" }

type PackageType struct {
	ID   int
	Name string
}

func (*PackageType) EntityName() string { return "PackageType" }

type User struct {
	ID       int
	Username string
	Email    string
	Role     *Role
}

func (*User) EntityName() string { return "User" }

type Role struct {
	ID          int
	Name        string
	Handle      string
	Permissions []*Permission
}

func (*Role) EntityName() string { return "Role" }

type Permission struct {
	ID     int
	Name   string
	Handle string
}

func (*Permission) EntityName() string { return "Permission" }

// Release exercises date/time, boolean and nullable columns.
type Release struct {
	ID          int64
	Package     *Package
	Version     string
	PublishedAt time.Time
	Stable      bool
	Notes       *string
}

func (*Release) EntityName() string { return "Release" }

// Draft has no schema or table declared.
type Draft struct {
	ID   int
	Body string
}

func (*Draft) EntityName() string { return "Draft" }

// AuditEntry declares no identifier.
type AuditEntry struct {
	Message string
}

func (*AuditEntry) EntityName() string { return "AuditEntry" }

// Unregistered implements Entity but is never defined in the registry.
type Unregistered struct{}

func (*Unregistered) EntityName() string { return "Unregistered" }

// StandardModel is a plain type that is not an entity.
type StandardModel struct {
	ID int
}

// NewRegistry returns a registry holding every test entity.
func NewRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	Register(reg)
	return reg
}

// Register defines the test entities on reg.
func Register(reg *schema.Registry) {
	schema.MustDefine(reg, schema.Definition[Package]{
		Schema: "Application",
		Table:  "tblPackage",
		Fields: []schema.Field[Package]{
			schema.ID("id", "intPackageId", func(p *Package) *int { return &p.ID }),
			schema.Column("name", "strPackageName", func(p *Package) *string { return &p.Name }),
			schema.Column("packageType", "intPackageTypeId", func(p *Package) **PackageType { return &p.PackageType }),
			schema.Column("owner", "intOwnerId", func(p *Package) **User { return &p.Owner }),
		},
	})

	schema.MustDefine(reg, schema.Definition[PackageType]{
		Schema: "Application",
		Table:  "ublPackageType",
		Fields: []schema.Field[PackageType]{
			schema.ID("id", "intPackageTypeId", func(p *PackageType) *int { return &p.ID }),
			schema.Column("name", "strPackageTypeName", func(p *PackageType) *string { return &p.Name }),
		},
	})

	schema.MustDefine(reg, schema.Definition[User]{
		Schema: "Security",
		Table:  "tblUser",
		Fields: []schema.Field[User]{
			schema.ID("id", "intUserId", func(u *User) *int { return &u.ID }),
			schema.Column("username", "strUsername", func(u *User) *string { return &u.Username }),
			schema.Column("email", "strEmail", func(u *User) *string { return &u.Email }),
			schema.Column("role", "intRoleId", func(u *User) **Role { return &u.Role }),
		},
	})

	schema.MustDefine(reg, schema.Definition[Role]{
		Schema: "Security",
		Table:  "ublRole",
		Fields: []schema.Field[Role]{
			schema.ID("id", "intRoleId", func(r *Role) *int { return &r.ID }),
			schema.Column("name", "strRoleName", func(r *Role) *string { return &r.Name }),
			schema.Column("handle", "strRoleHandle", func(r *Role) *string { return &r.Handle }),
			schema.Collection("permissions", func(r *Role) *[]*Permission { return &r.Permissions }, schema.JoinTable{
				Schema:        "Security",
				Table:         "tblRolePermission",
				Alias:         "rp",
				LocalColumn:   "intRoleId",
				ForeignColumn: "intPermissionId",
			}),
		},
	})

	schema.MustDefine(reg, schema.Definition[Permission]{
		Schema: "Security",
		Table:  "ublPermission",
		Fields: []schema.Field[Permission]{
			schema.ID("id", "intPermissionId", func(p *Permission) *int { return &p.ID }),
			schema.Column("name", "strPermissionName", func(p *Permission) *string { return &p.Name }),
			schema.Column("handle", "strPermissionHandle", func(p *Permission) *string { return &p.Handle }),
		},
	})

	schema.MustDefine(reg, schema.Definition[Release]{
		Schema: "Application",
		Table:  "tblRelease",
		Fields: []schema.Field[Release]{
			schema.ID("id", "intReleaseId", func(r *Release) *int64 { return &r.ID }),
			schema.Column("package", "intPackageId", func(r *Release) **Package { return &r.Package }),
			schema.Column("version", "strVersion", func(r *Release) *string { return &r.Version }),
			schema.Column("publishedAt", "dtmPublished", func(r *Release) *time.Time { return &r.PublishedAt }),
			schema.Column("stable", "bitStable", func(r *Release) *bool { return &r.Stable }),
			schema.Column("notes", "strNotes", func(r *Release) **string { return &r.Notes }),
		},
	})

	schema.MustDefine(reg, schema.Definition[Draft]{
		Fields: []schema.Field[Draft]{
			schema.ID("id", "intDraftId", func(d *Draft) *int { return &d.ID }),
			schema.Column("body", "strBody", func(d *Draft) *string { return &d.Body }),
		},
	})

	schema.MustDefine(reg, schema.Definition[AuditEntry]{
		Schema: "Security",
		Table:  "tblAudit",
		Fields: []schema.Field[AuditEntry]{
			schema.Column("message", "strMessage", func(a *AuditEntry) *string { return &a.Message }),
		},
	})
}
