// Package visibility decides which files a requester may see.
//
// The resolver is a pure function of its inputs: no clock reads, no I/O, no
// shared state, so it is safe to call concurrently from many requests and its
// behavior is reproducible in tests by injecting "now".
package visibility

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/mbastos/filegate/internal/model"
)

// Requester is the authenticated identity a visibility question is asked for.
// Group and category sets may be nil; absent memberships behave as empty,
// so dangling foreign keys in membership data simply never match.
type Requester struct {
	UserID     uuid.UUID
	Role       model.Role
	Groups     map[uuid.UUID]struct{}
	Categories map[uuid.UUID]struct{}
}

// NewRequester builds a Requester from membership slices.
func NewRequester(userID uuid.UUID, role model.Role, groups, categories []uuid.UUID) Requester {
	r := Requester{
		UserID:     userID,
		Role:       role,
		Groups:     make(map[uuid.UUID]struct{}, len(groups)),
		Categories: make(map[uuid.UUID]struct{}, len(categories)),
	}
	for _, g := range groups {
		r.Groups[g] = struct{}{}
	}
	for _, c := range categories {
		r.Categories[c] = struct{}{}
	}
	return r
}

// Visible reports whether the file may be listed or downloaded by the
// requester at the given instant. The predicate, in order:
//
//  1. the file is not soft-deleted;
//  2. the file status is active;
//  3. the validity window contains now, where a permanent file is always
//     in-window even if stale dates remain on the row;
//  4. at least one grant path applies (see grantSatisfied).
func Visible(req Requester, f *model.File, now time.Time) bool {
	if f == nil || f.DeletedAt != nil {
		return false
	}
	if f.Status != model.FileActive {
		return false
	}
	if !inWindow(f, now) {
		return false
	}
	return grantSatisfied(req, f)
}

// Filter returns the files visible to the requester, preserving input order.
// Calling it twice with identical inputs yields identical results.
func Filter(req Requester, files []*model.File, now time.Time) []*model.File {
	out := make([]*model.File, 0, len(files))
	for _, f := range files {
		if Visible(req, f, now) {
			out = append(out, f)
		}
	}
	return out
}

// CountVisible is the restricted form used by the stats endpoint.
func CountVisible(req Requester, files []*model.File, now time.Time) int {
	n := 0
	for _, f := range files {
		if Visible(req, f, now) {
			n++
		}
	}
	return n
}

// inWindow checks the temporal condition. Permanence overrides the dates at
// read time; an inconsistent row (permanent with dates set) is permanent.
// Dates are compared at day granularity, matching their storage as calendar
// dates.
func inWindow(f *model.File, now time.Time) bool {
	if f.IsPermanent {
		return true
	}
	day := dateOf(now)
	if f.StartDate != nil && dateOf(*f.StartDate).After(day) {
		return false
	}
	if f.EndDate != nil && dateOf(*f.EndDate).Before(day) {
		return false
	}
	return true
}

// grantSatisfied evaluates the access condition: uploader; privileged role
// with any category grant on the file (deliberate breadth, not filtered by
// subscription); a direct user grant; a group grant matching the requester's
// groups; a category grant matching the requester's subscriptions; or an
// ungated file seen by an admin.
func grantSatisfied(req Requester, f *model.File) bool {
	if f.UploadedBy == req.UserID {
		return true
	}
	if len(f.Grants) == 0 {
		return req.Role == model.RoleAdmin
	}
	for _, g := range f.Grants {
		switch g.Kind {
		case model.GrantUser:
			if g.TargetID == req.UserID {
				return true
			}
		case model.GrantGroup:
			if _, ok := req.Groups[g.TargetID]; ok {
				return true
			}
		case model.GrantCategory:
			if req.Role.Privileged() {
				return true
			}
			if _, ok := req.Categories[g.TargetID]; ok {
				return true
			}
		}
	}
	return false
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
