package handle

import (
	"github.com/marmos91/dittohandle/internal/logger"
)

// Policy holds the settings the reconciler and admin builder consult.
// It is copied at construction and never changes afterwards.
type Policy struct {
	// AdminPermissions is forced onto every HS_ADMIN value written
	AdminPermissions string

	// AllowAdminModification permits changes to HS_ADMIN
	AllowAdminModification bool
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{AdminPermissions: DefaultAdminPermissions}
}

// ReconcileOptions controls a single reconciliation.
type ReconcileOptions struct {
	// TTL is set on newly created entries only
	TTL *int

	// AddIfMissing creates entries for types not present in the record
	AddIfMissing bool

	// Overwrite is passed through to the write request
	Overwrite bool
}

// Plan is the outcome of a reconciliation: the entries to submit and the
// indices they occupy.
type Plan struct {
	Entries   []Entry
	Indices   []int
	Overwrite bool

	// Added and Modified count new and changed entries
	Added    int
	Modified int
}

// Empty reports whether the plan has nothing to write.
func (p *Plan) Empty() bool {
	return p == nil || len(p.Entries) == 0
}

// Reconciler turns requested changes into the entries to write.
type Reconciler struct {
	policy Policy
}

// NewReconciler creates a reconciler bound to policy.
func NewReconciler(policy Policy) *Reconciler {
	if policy.AdminPermissions == "" {
		policy.AdminPermissions = DefaultAdminPermissions
	}
	return &Reconciler{policy: policy}
}

// Policy returns a copy of the reconciler's policy.
func (r *Reconciler) Policy() Policy {
	return r.policy
}

// Reconcile computes the entries to submit for changes against the current
// record entries.
//
// Changes are processed in order. A type with exactly one entry gets the new
// value (always, even if equal) and loses its timestamp. A type with no entry
// is created when opts.AddIfMissing is set, at the lowest free ordinary index
// counting entries created earlier in the same call. A type with more than
// one entry aborts with ErrBrokenRecord; no plan is returned.
//
// current is never modified.
func (r *Reconciler) Reconcile(current []Entry, changes Changes, opts ReconcileOptions) (*Plan, error) {
	if changes.Has(TypeAdmin) && !r.policy.AllowAdminModification {
		return nil, NewIllegalOperationError("modifying HS_ADMIN", "", "modification of HS_ADMIN is not allowed")
	}

	plan := &Plan{Overwrite: opts.Overwrite}
	used := indicesOf(current)
	var processed []string

	for _, ch := range changes {
		matches := positionsOfType(ch.Type, current)

		switch len(matches) {
		case 0:
			if !opts.AddIfMissing {
				logger.Debug("reconcile: no entry of type %s, not adding", ch.Type)
				break
			}
			index := AllocateIndex(used, IndexOrdinary)
			entry, err := NewEntry(ch.Type, ch.Value, index, opts.TTL)
			if err != nil {
				return nil, err
			}
			used = append(used, index)
			plan.Entries = append(plan.Entries, entry)
			plan.Indices = append(plan.Indices, index)
			plan.Added++

		case 1:
			entry := current[matches[0]].Clone()
			if ch.Type == TypeAdmin {
				data, err := r.adminData(ch.Value)
				if err != nil {
					return nil, err
				}
				entry.Data = data
			} else {
				entry.Data = ch.Value
			}
			entry.Timestamp = ""
			plan.Entries = append(plan.Entries, entry)
			plan.Indices = append(plan.Indices, entry.Index)
			plan.Modified++

		default:
			return nil, &HandleError{
				Code:    ErrBrokenRecord,
				Op:      "modifying handle values",
				Message: "record contains more than one entry of type " + ch.Type,
				Keys:    append(processed, ch.Type),
			}
		}
		processed = append(processed, ch.Type)
	}

	return plan, nil
}

func (r *Reconciler) adminData(value Data) (Data, error) {
	if value.Admin == nil {
		return Data{}, NewIllegalOperationError("modifying HS_ADMIN", "", "HS_ADMIN value must be an admin value")
	}
	admin := *value.Admin
	admin.Permissions = r.policy.AdminPermissions
	return AdminData(admin), nil
}

// AdminEntry builds the HS_ADMIN entry for handle with the policy permissions.
func (r *Reconciler) AdminEntry(owner string, index int, handle string) (Entry, error) {
	return BuildAdminEntry(owner, r.policy.AdminPermissions, index, handle)
}

func positionsOfType(typ string, entries []Entry) []int {
	var out []int
	for i, e := range entries {
		if e.Type == typ {
			out = append(out, i)
		}
	}
	return out
}
