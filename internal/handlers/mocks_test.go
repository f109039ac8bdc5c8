package handlers

import (
	"context"

	"github.com/asakaida/gakudan/internal/entities"
	"github.com/asakaida/gakudan/internal/repositories"
	"github.com/asakaida/gakudan/internal/services"
	"github.com/asakaida/gakudan/internal/services/authz"
	"github.com/asakaida/gakudan/pkg/paging"
)

// Function-field mocks: tests set only the calls they expect. Unset calls
// report absence.

type mockMusicianService struct {
	listFn    func(ctx context.Context, query repositories.MusicianQuery) (*paging.Page[*entities.Musician], error)
	getFn     func(ctx context.Context, id int64) (*entities.Musician, error)
	createFn  func(ctx context.Context, actor authz.Actor, fields services.MusicianFields, selected []string) (*entities.Musician, error)
	updateFn  func(ctx context.Context, actor authz.Actor, id int64, fields services.MusicianFields, expectedVersion string, selected []string) (*entities.Musician, error)
	deleteFn  func(ctx context.Context, id int64) error
	optionsFn func(ctx context.Context, id int64) (*services.SelectionLists, error)
	choicesFn func(ctx context.Context) ([]services.OptionItem, error)
}

func (m *mockMusicianService) List(ctx context.Context, query repositories.MusicianQuery) (*paging.Page[*entities.Musician], error) {
	if m.listFn != nil {
		return m.listFn(ctx, query)
	}
	page := paging.New[*entities.Musician](nil, 0, 1, paging.DefaultSize)
	return &page, nil
}

func (m *mockMusicianService) Get(ctx context.Context, id int64) (*entities.Musician, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, entities.ErrNotFound
}

func (m *mockMusicianService) Create(ctx context.Context, actor authz.Actor, fields services.MusicianFields, selected []string) (*entities.Musician, error) {
	if m.createFn != nil {
		return m.createFn(ctx, actor, fields, selected)
	}
	return nil, entities.ErrNotFound
}

func (m *mockMusicianService) Update(ctx context.Context, actor authz.Actor, id int64, fields services.MusicianFields, expectedVersion string, selected []string) (*entities.Musician, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actor, id, fields, expectedVersion, selected)
	}
	return nil, entities.ErrNotFound
}

func (m *mockMusicianService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return entities.ErrNotFound
}

func (m *mockMusicianService) Options(ctx context.Context, id int64) (*services.SelectionLists, error) {
	if m.optionsFn != nil {
		return m.optionsFn(ctx, id)
	}
	return &services.SelectionLists{Selected: []services.OptionItem{}, Available: []services.OptionItem{}}, nil
}

func (m *mockMusicianService) InstrumentChoices(ctx context.Context) ([]services.OptionItem, error) {
	if m.choicesFn != nil {
		return m.choicesFn(ctx)
	}
	return nil, nil
}

type mockInstrumentService struct {
	listFn    func(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.Instrument], error)
	getFn     func(ctx context.Context, id int64) (*entities.Instrument, error)
	createFn  func(ctx context.Context, actor authz.Actor, name string, selected []string) (*entities.Instrument, error)
	updateFn  func(ctx context.Context, actor authz.Actor, id int64, name, expectedVersion string, selected []string) (*entities.Instrument, error)
	deleteFn  func(ctx context.Context, id int64) error
	optionsFn func(ctx context.Context, id int64) (*services.SelectionLists, error)
	importFn  func(ctx context.Context, instruments []*entities.Instrument) (int, error)
}

func (m *mockInstrumentService) List(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.Instrument], error) {
	if m.listFn != nil {
		return m.listFn(ctx, pageIndex, pageSize)
	}
	page := paging.New[*entities.Instrument](nil, 0, 1, paging.DefaultSize)
	return &page, nil
}

func (m *mockInstrumentService) Get(ctx context.Context, id int64) (*entities.Instrument, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, entities.ErrNotFound
}

func (m *mockInstrumentService) Create(ctx context.Context, actor authz.Actor, name string, selected []string) (*entities.Instrument, error) {
	if m.createFn != nil {
		return m.createFn(ctx, actor, name, selected)
	}
	return nil, entities.ErrNotFound
}

func (m *mockInstrumentService) Update(ctx context.Context, actor authz.Actor, id int64, name, expectedVersion string, selected []string) (*entities.Instrument, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, actor, id, name, expectedVersion, selected)
	}
	return nil, entities.ErrNotFound
}

func (m *mockInstrumentService) Delete(ctx context.Context, id int64) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return entities.ErrNotFound
}

func (m *mockInstrumentService) Options(ctx context.Context, id int64) (*services.SelectionLists, error) {
	if m.optionsFn != nil {
		return m.optionsFn(ctx, id)
	}
	return &services.SelectionLists{Selected: []services.OptionItem{}, Available: []services.OptionItem{}}, nil
}

func (m *mockInstrumentService) Import(ctx context.Context, instruments []*entities.Instrument) (int, error) {
	if m.importFn != nil {
		return m.importFn(ctx, instruments)
	}
	return 0, nil
}

type mockPerformanceService struct {
	recordFn  func(ctx context.Context, performance *entities.Performance) error
	listFn    func(ctx context.Context, musicianID int64) ([]*entities.Performance, error)
	summaryFn func(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.PerformanceSummary], error)
	exportFn  func(ctx context.Context) ([]byte, error)
}

func (m *mockPerformanceService) Record(ctx context.Context, performance *entities.Performance) error {
	if m.recordFn != nil {
		return m.recordFn(ctx, performance)
	}
	return nil
}

func (m *mockPerformanceService) ListForMusician(ctx context.Context, musicianID int64) ([]*entities.Performance, error) {
	if m.listFn != nil {
		return m.listFn(ctx, musicianID)
	}
	return nil, nil
}

func (m *mockPerformanceService) Summary(ctx context.Context, pageIndex, pageSize int) (*paging.Page[*entities.PerformanceSummary], error) {
	if m.summaryFn != nil {
		return m.summaryFn(ctx, pageIndex, pageSize)
	}
	page := paging.New[*entities.PerformanceSummary](nil, 0, 1, paging.DefaultSize)
	return &page, nil
}

func (m *mockPerformanceService) ExportSummary(ctx context.Context) ([]byte, error) {
	if m.exportFn != nil {
		return m.exportFn(ctx)
	}
	return nil, entities.ErrNotFound
}

type mockPhotoService struct {
	uploadFn func(ctx context.Context, musicianID int64, content []byte, mimeType string) error
	getFn    func(ctx context.Context, musicianID int64, thumb bool) ([]byte, string, error)
	removeFn func(ctx context.Context, musicianID int64) error
}

func (m *mockPhotoService) Upload(ctx context.Context, musicianID int64, content []byte, mimeType string) error {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, musicianID, content, mimeType)
	}
	return nil
}

func (m *mockPhotoService) Get(ctx context.Context, musicianID int64, thumb bool) ([]byte, string, error) {
	if m.getFn != nil {
		return m.getFn(ctx, musicianID, thumb)
	}
	return nil, "", entities.ErrNotFound
}

func (m *mockPhotoService) Remove(ctx context.Context, musicianID int64) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, musicianID)
	}
	return nil
}

type mockDocumentService struct {
	attachFn   func(ctx context.Context, musicianID int64, fileName, mimeType string, content []byte) error
	downloadFn func(ctx context.Context, id int64) (*entities.MusicianDocument, error)
	listFn     func(ctx context.Context, musicianID int64) ([]*entities.MusicianDocument, error)
}

func (m *mockDocumentService) Attach(ctx context.Context, musicianID int64, fileName, mimeType string, content []byte) error {
	if m.attachFn != nil {
		return m.attachFn(ctx, musicianID, fileName, mimeType, content)
	}
	return nil
}

func (m *mockDocumentService) Download(ctx context.Context, id int64) (*entities.MusicianDocument, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, id)
	}
	return nil, entities.ErrNotFound
}

func (m *mockDocumentService) ListForMusician(ctx context.Context, musicianID int64) ([]*entities.MusicianDocument, error) {
	if m.listFn != nil {
		return m.listFn(ctx, musicianID)
	}
	return nil, nil
}
