// Package access resolves which modules a user can actually use within a
// tenant: the intersection of tenant enablement, the tenant's role matrix,
// and per-user overrides.
//
// # Resolution Pipeline
//
// Every decision flows through the same pipeline:
//
//	tenant enablement (ceiling)
//	  -> role matrix (default or custom mode)
//	    -> user overrides (grants, then revokes)
//
// The enablement set is an absolute ceiling. Role rows and grant overrides
// can only select within it; nothing below can widen it.
//
// # Modes
//
// A tenant is in exactly one of two modes, tenant-wide:
//
//   - Default: every role sees every enabled module. No matrix rows exist.
//   - Custom: each role sees only its explicit rows. A role with no rows
//     sees nothing from the matrix.
//
// The switch is all-or-nothing: saving any matrix row flips the whole
// tenant to custom, saving an empty matrix flips it back. Row existence is
// the source of truth; the recorded mode row is a write-time companion for
// reporting.
//
// # Overrides
//
// Per-user overrides are the finest knob. A revoke always hides a module,
// even against a grant for the same module. A grant only takes effect while
// the module is tenant-enabled; otherwise it is stored but inert, and
// activates by itself if the tenant's enablement later widens.
//
// # Usage
//
//	enablement := access.NewEnablementResolver(tenantStore, registry, logger, metrics)
//	resolver := access.NewResolver(enablement, matrixStore, overrideStore, logger, metrics)
//	svc := access.NewCachedService(resolver, redisClient, logger, metrics)
//
//	modules, err := svc.EffectiveModules(ctx, tenantID, access.Subject{
//		UserID: userID,
//		Role:   member.Role,
//	})
//
// # Failure Semantics
//
// Store and lookup failures always surface as errors. A failed resolution
// is never reported as "no modules" or "all modules"; callers translate
// errors into HTTP 5xx instead of serving a wrong answer.
//
// # Related Packages
//
//   - pkg/registry: module catalog and templates
//   - pkg/tenants: tenant records and memberships
//   - pkg/navigation: turns resolved sets into sidebar payloads
package access
