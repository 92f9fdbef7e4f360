package contractor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kwatuha/imes-sub010/pkg/textnorm"
)

var ErrNotFound = errors.New("contractor not found")

// PlaceholderDomain is used for contractors created without an email.
const PlaceholderDomain = "contractor.local"

type Contractor struct {
	ID            int64
	CompanyName   string
	Email         string
	Phone         string
	ContactPerson string
}

var slugJunkRe = regexp.MustCompile(`[^a-z0-9]`)

// CompanyKey is the comparison key for company names: normalized, lowercased
// and without spaces or apostrophes.
func CompanyKey(name string) string {
	return textnorm.CompactKey(name)
}

// PlaceholderEmail derives "<slug>@contractor.local" from a company name; the
// slug keeps at most 50 lowercase letters and digits.
func PlaceholderEmail(companyName string) string {
	slug := slugJunkRe.ReplaceAllString(strings.ToLower(companyName), "")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	if slug == "" {
		slug = "contractor"
	}
	return fmt.Sprintf("%s@%s", slug, PlaceholderDomain)
}

type Repository interface {
	FindByCompanyKey(ctx context.Context, key string) (*Contractor, error)
	FindByEmail(ctx context.Context, email string) (*Contractor, error)
	// Create inserts unless a contractor with the same company key or email
	// already exists; created is false in that case and id is 0.
	Create(ctx context.Context, c *Contractor, actorID int64) (id int64, created bool, err error)
	// Assign links a contractor to a project and reports whether the link is new.
	Assign(ctx context.Context, projectID, contractorID int64) (bool, error)
}
