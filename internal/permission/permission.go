package permission

import "github.com/akolanti/DocVault/internal/domain/commonModels"

// IsVisible decides whether a chunk with the given access attributes may be
// shown to a requester from requesterDept. Unknown levels are never visible.
// PRIVATE has no owner identity beyond the department, so it follows the
// DEPARTMENT rule. An empty requester department never matches, not even an
// empty owner.
func IsVisible(level commonModels.AccessLevel, ownerDept string, requesterDept string) bool {
	switch level {
	case commonModels.AccessPublic:
		return true
	case commonModels.AccessDepartment, commonModels.AccessPrivate:
		return requesterDept != "" && requesterDept == ownerDept
	default:
		return false
	}
}

func IsChunkVisible(chunk commonModels.RetrievedChunk, requesterDept string) bool {
	return IsVisible(chunk.AccessLevel, chunk.OwnerDepartment, requesterDept)
}

// Clause is one conjunction of the push-down filter. An empty Department
// matches any owner.
type Clause struct {
	AccessLevel commonModels.AccessLevel
	Department  string
}

// Filter is the index-side form of IsVisible for one requester.
type Filter struct {
	Department string
}

func ForDepartment(dept string) *Filter {
	return &Filter{Department: dept}
}

// Clauses lists the disjunction of conditions under which a chunk is visible.
func (f *Filter) Clauses() []Clause {
	clauses := []Clause{{AccessLevel: commonModels.AccessPublic}}
	if f.Department == "" {
		return clauses
	}
	return append(clauses,
		Clause{AccessLevel: commonModels.AccessDepartment, Department: f.Department},
		Clause{AccessLevel: commonModels.AccessPrivate, Department: f.Department},
	)
}

func (f *Filter) Allows(chunk commonModels.RetrievedChunk) bool {
	if f == nil {
		return true
	}
	return IsChunkVisible(chunk, f.Department)
}
