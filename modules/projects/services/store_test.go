package services

import (
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/contractor"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/importrun"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/entities/project"
	"github.com/kwatuha/imes-sub010/modules/projects/domain/reference"
)

type link [2]int64

type storedProject struct {
	project.Project
	ID        int64
	CreatedBy int64
	UpdatedBy int64
}

type storeState struct {
	projects    map[int64]storedProject
	nextID      int64
	wardLinks   map[link]bool
	subLinks    map[link]bool
	contractors []contractor.Contractor
	assignments map[link]bool
	runs        []importrun.Run
}

func (s *storeState) clone() *storeState {
	return &storeState{
		projects:    maps.Clone(s.projects),
		nextID:      s.nextID,
		wardLinks:   maps.Clone(s.wardLinks),
		subLinks:    maps.Clone(s.subLinks),
		contractors: slices.Clone(s.contractors),
		assignments: maps.Clone(s.assignments),
		runs:        slices.Clone(s.runs),
	}
}

// memStore is an in-memory stand-in for the pgx repositories. Transactions
// and savepoints snapshot the state and restore it on error.
type memStore struct {
	snap *reference.Snapshot
	cur  *storeState

	snapshotCalls int
	// contractorRace makes Create behave as if a concurrent import inserted
	// the same contractor first.
	contractorRace bool
	failRecord     error
}

func newMemStore(snap *reference.Snapshot) *memStore {
	return &memStore{
		snap: snap,
		cur: &storeState{
			projects:    map[int64]storedProject{},
			wardLinks:   map[link]bool{},
			subLinks:    map[link]bool{},
			assignments: map[link]bool{},
		},
	}
}

func (m *memStore) repositories() Repositories {
	return Repositories{References: m, Projects: m, Contractors: contractorStore{m}, Runs: runRecorder{m}}
}

func (m *memStore) atomically(ctx context.Context, fn func(context.Context) error) error {
	saved := m.cur.clone()
	if err := fn(ctx); err != nil {
		m.cur = saved
		return err
	}
	return nil
}

func (m *memStore) InTx(ctx context.Context, fn func(context.Context) error) error {
	return m.atomically(ctx, fn)
}

func (m *memStore) InSavepoint(ctx context.Context, fn func(context.Context) error) error {
	return m.atomically(ctx, fn)
}

func (m *memStore) Snapshot(context.Context) (*reference.Snapshot, error) {
	m.snapshotCalls++
	return m.snap, nil
}

func (m *memStore) FindIDByRefNum(_ context.Context, refNum string) (int64, error) {
	for _, id := range m.projectIDs() {
		if m.cur.projects[id].RefNum == refNum {
			return id, nil
		}
	}
	return 0, nil
}

func (m *memStore) FindIDByName(_ context.Context, name string) (int64, error) {
	for _, id := range m.projectIDs() {
		if m.cur.projects[id].Name == name {
			return id, nil
		}
	}
	return 0, nil
}

func (m *memStore) projectIDs() []int64 {
	return slices.Sorted(maps.Keys(m.cur.projects))
}

func (m *memStore) Create(_ context.Context, p *project.Project, actorID int64) (int64, error) {
	m.cur.nextID++
	id := m.cur.nextID
	m.cur.projects[id] = storedProject{Project: *p, ID: id, CreatedBy: actorID, UpdatedBy: actorID}
	return id, nil
}

func (m *memStore) Update(_ context.Context, id int64, p *project.Project, actorID int64) error {
	prev := m.cur.projects[id]
	m.cur.projects[id] = storedProject{Project: *p, ID: id, CreatedBy: prev.CreatedBy, UpdatedBy: actorID}
	return nil
}

func addLink(set map[link]bool, a, b int64) bool {
	if set[link{a, b}] {
		return false
	}
	set[link{a, b}] = true
	return true
}

func (m *memStore) LinkWard(_ context.Context, projectID, wardID int64) (bool, error) {
	return addLink(m.cur.wardLinks, projectID, wardID), nil
}

func (m *memStore) LinkSubcounty(_ context.Context, projectID, subcountyID int64) (bool, error) {
	return addLink(m.cur.subLinks, projectID, subcountyID), nil
}

// contractorStore implements contractor.Repository on memStore's state.
type contractorStore struct{ *memStore }

func (c contractorStore) FindByCompanyKey(_ context.Context, key string) (*contractor.Contractor, error) {
	for _, existing := range c.cur.contractors {
		if contractor.CompanyKey(existing.CompanyName) == key {
			found := existing
			return &found, nil
		}
	}
	return nil, contractor.ErrNotFound
}

func (c contractorStore) FindByEmail(_ context.Context, email string) (*contractor.Contractor, error) {
	for _, existing := range c.cur.contractors {
		if strings.EqualFold(existing.Email, email) {
			found := existing
			return &found, nil
		}
	}
	return nil, contractor.ErrNotFound
}

func (c contractorStore) Create(ctx context.Context, in *contractor.Contractor, _ int64) (int64, bool, error) {
	if c.contractorRace {
		c.contractorRace = false
		c.insertContractor(*in)
		return 0, false, nil
	}
	if found, _ := c.FindByCompanyKey(ctx, contractor.CompanyKey(in.CompanyName)); found != nil {
		return 0, false, nil
	}
	if found, _ := c.FindByEmail(ctx, in.Email); found != nil {
		return 0, false, nil
	}
	id := c.insertContractor(*in)
	in.ID = id
	return id, true, nil
}

func (m *memStore) insertContractor(in contractor.Contractor) int64 {
	in.ID = int64(len(m.cur.contractors) + 100)
	m.cur.contractors = append(m.cur.contractors, in)
	return in.ID
}

func (c contractorStore) Assign(_ context.Context, projectID, contractorID int64) (bool, error) {
	return addLink(c.cur.assignments, projectID, contractorID), nil
}

type runRecorder struct{ *memStore }

func (r runRecorder) Record(_ context.Context, run *importrun.Run) error {
	if r.failRecord != nil {
		return r.failRecord
	}
	r.cur.runs = append(r.cur.runs, *run)
	return nil
}
