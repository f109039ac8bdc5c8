package services

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/repositories"
	"github.com/asakaida/gakudan/pkg/paging"
)

// mockMusicianRepository is an in-memory MusicianRepository with real
// compare-and-swap semantics on the row version token.
type mockMusicianRepository struct {
	musicians map[int64]*entities.Musician
	plays     map[int64]map[int64]bool // musician ID -> instrument IDs
	nextID    int64
}

func newMockMusicianRepository() *mockMusicianRepository {
	return &mockMusicianRepository{
		musicians: map[int64]*entities.Musician{},
		plays:     map[int64]map[int64]bool{},
	}
}

func (r *mockMusicianRepository) Create(ctx context.Context, musician *entities.Musician, playInstrumentIDs []int64) error {
	for _, stored := range r.musicians {
		if stored.SIN == musician.SIN {
			return entities.NewUniqueViolation("sin")
		}
	}
	r.nextID++
	musician.ID = r.nextID
	musician.RowVersion = uuid.NewString()
	copied := *musician
	r.musicians[musician.ID] = &copied
	links := map[int64]bool{}
	for _, id := range playInstrumentIDs {
		links[id] = true
	}
	r.plays[musician.ID] = links
	return nil
}

func (r *mockMusicianRepository) GetByID(ctx context.Context, id int64) (*entities.Musician, error) {
	stored, ok := r.musicians[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	copied := *stored
	var instrumentIDs []int64
	for instrumentID := range r.plays[id] {
		instrumentIDs = append(instrumentIDs, instrumentID)
	}
	sort.Slice(instrumentIDs, func(i, j int) bool { return instrumentIDs[i] < instrumentIDs[j] })
	for _, instrumentID := range instrumentIDs {
		copied.Plays = append(copied.Plays, &entities.Play{MusicianID: id, InstrumentID: instrumentID})
	}
	return &copied, nil
}

func (r *mockMusicianRepository) List(ctx context.Context, query repositories.MusicianQuery) (*paging.Page[*entities.Musician], error) {
	var all []*entities.Musician
	for _, m := range r.musicians {
		copied := *m
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	size := paging.NormalizeSize(query.PageSize)
	index := paging.ClampIndex(query.PageIndex, len(all), size)
	offset := paging.Offset(index, size)
	end := offset + size
	if end > len(all) {
		end = len(all)
	}
	page := paging.New(all[offset:end], len(all), index, size)
	return &page, nil
}

func (r *mockMusicianRepository) ListAll(ctx context.Context) ([]*entities.Musician, error) {
	var all []*entities.Musician
	for _, m := range r.musicians {
		copied := *m
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FormalName() < all[j].FormalName() })
	return all, nil
}

func (r *mockMusicianRepository) Update(ctx context.Context, musician *entities.Musician, expectedVersion string, addPlays, removePlays []int64) (string, error) {
	stored, ok := r.musicians[musician.ID]
	if !ok {
		return "", entities.ErrDeletedConcurrently
	}
	if stored.RowVersion != expectedVersion {
		return "", entities.ErrStaleVersion
	}
	copied := *musician
	copied.RowVersion = uuid.NewString()
	r.musicians[musician.ID] = &copied
	links := r.plays[musician.ID]
	if links == nil {
		links = map[int64]bool{}
		r.plays[musician.ID] = links
	}
	for _, id := range addPlays {
		links[id] = true
	}
	for _, id := range removePlays {
		delete(links, id)
	}
	return copied.RowVersion, nil
}

func (r *mockMusicianRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := r.musicians[id]; !ok {
		return entities.ErrNotFound
	}
	delete(r.musicians, id)
	delete(r.plays, id)
	return nil
}

func (r *mockMusicianRepository) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := r.musicians[id]
	return ok, nil
}

// mockInstrumentRepository is the in-memory counterpart for instruments.
type mockInstrumentRepository struct {
	instruments map[int64]*entities.Instrument
	plays       map[int64]map[int64]bool // instrument ID -> musician IDs
	nextID      int64
	referenced  map[int64]bool // instrument IDs that Delete must refuse
}

func newMockInstrumentRepository() *mockInstrumentRepository {
	return &mockInstrumentRepository{
		instruments: map[int64]*entities.Instrument{},
		plays:       map[int64]map[int64]bool{},
		referenced:  map[int64]bool{},
	}
}

func (r *mockInstrumentRepository) add(name string) *entities.Instrument {
	r.nextID++
	inst := &entities.Instrument{ID: r.nextID, Name: name, RowVersion: uuid.NewString()}
	r.instruments[inst.ID] = inst
	r.plays[inst.ID] = map[int64]bool{}
	return inst
}

func (r *mockInstrumentRepository) Create(ctx context.Context, instrument *entities.Instrument, playMusicianIDs []int64) error {
	r.nextID++
	instrument.ID = r.nextID
	instrument.RowVersion = uuid.NewString()
	copied := *instrument
	r.instruments[instrument.ID] = &copied
	links := map[int64]bool{}
	for _, id := range playMusicianIDs {
		links[id] = true
	}
	r.plays[instrument.ID] = links
	return nil
}

func (r *mockInstrumentRepository) GetByID(ctx context.Context, id int64) (*entities.Instrument, error) {
	stored, ok := r.instruments[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	copied := *stored
	var musicianIDs []int64
	for musicianID := range r.plays[id] {
		musicianIDs = append(musicianIDs, musicianID)
	}
	sort.Slice(musicianIDs, func(i, j int) bool { return musicianIDs[i] < musicianIDs[j] })
	for _, musicianID := range musicianIDs {
		copied.Plays = append(copied.Plays, &entities.Play{MusicianID: musicianID, InstrumentID: id})
	}
	return &copied, nil
}

func (r *mockInstrumentRepository) List(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.Instrument], error) {
	all, _ := r.ListAll(ctx)
	size := paging.NormalizeSize(pageSize)
	index := paging.ClampIndex(pageIndex, len(all), size)
	offset := paging.Offset(index, size)
	end := offset + size
	if end > len(all) {
		end = len(all)
	}
	page := paging.New(all[offset:end], len(all), index, size)
	return &page, nil
}

func (r *mockInstrumentRepository) ListAll(ctx context.Context) ([]*entities.Instrument, error) {
	var all []*entities.Instrument
	for _, inst := range r.instruments {
		copied := *inst
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return all[i].ID < all[j].ID
	})
	return all, nil
}

func (r *mockInstrumentRepository) Update(ctx context.Context, instrument *entities.Instrument, expectedVersion string, addPlays, removePlays []int64) (string, error) {
	stored, ok := r.instruments[instrument.ID]
	if !ok {
		return "", entities.ErrDeletedConcurrently
	}
	if stored.RowVersion != expectedVersion {
		return "", entities.ErrStaleVersion
	}
	copied := *instrument
	copied.RowVersion = uuid.NewString()
	r.instruments[instrument.ID] = &copied
	links := r.plays[instrument.ID]
	if links == nil {
		links = map[int64]bool{}
		r.plays[instrument.ID] = links
	}
	for _, id := range addPlays {
		links[id] = true
	}
	for _, id := range removePlays {
		delete(links, id)
	}
	return copied.RowVersion, nil
}

func (r *mockInstrumentRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := r.instruments[id]; !ok {
		return entities.ErrNotFound
	}
	if r.referenced[id] {
		return &entities.ReferentialIntegrityError{
			Message: "unable to delete instrument: a musician still plays it",
		}
	}
	delete(r.instruments, id)
	delete(r.plays, id)
	return nil
}

func (r *mockInstrumentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := r.instruments[id]
	return ok, nil
}

func (r *mockInstrumentRepository) BatchCreate(ctx context.Context, instruments []*entities.Instrument) error {
	for _, inst := range instruments {
		if err := r.Create(ctx, inst, nil); err != nil {
			return err
		}
	}
	return nil
}
