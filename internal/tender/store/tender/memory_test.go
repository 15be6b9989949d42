package tender

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tenderledger/internal/tender/models"
	"tenderledger/pkg/domain"
	"tenderledger/pkg/platform/sentinel"
)

type TenderStoreSuite struct {
	suite.Suite
	store *InMemory
}

func TestTenderStoreSuite(t *testing.T) {
	suite.Run(t, new(TenderStoreSuite))
}

func (s *TenderStoreSuite) SetupTest() {
	s.store = NewInMemory()
}

func (s *TenderStoreSuite) tender(id domain.TenderID) *models.Tender {
	return &models.Tender{
		ID:          id,
		Title:       "t",
		Description: "d",
		Budget:      100,
		Deadline:    time.Now().Add(time.Hour),
		Creator:     "officer",
		Status:      models.StatusOpen,
		CreatedAt:   time.Now(),
	}
}

func (s *TenderStoreSuite) TestInsertAndFind() {
	ctx := context.Background()

	s.Require().NoError(s.store.Insert(ctx, s.tender(1)))
	s.ErrorIs(s.store.Insert(ctx, s.tender(1)), sentinel.ErrConflict)

	got, err := s.store.FindByID(ctx, 1)
	s.Require().NoError(err)
	s.Equal(domain.TenderID(1), got.ID)

	_, err = s.store.FindByID(ctx, 2)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *TenderStoreSuite) TestFindReturnsCopies() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, s.tender(1)))

	got, err := s.store.FindByID(ctx, 1)
	s.Require().NoError(err)
	got.Status = models.StatusCancelled

	// Mutating the copy must not leak into the store.
	fresh, err := s.store.FindByID(ctx, 1)
	s.Require().NoError(err)
	s.Equal(models.StatusOpen, fresh.Status)
}

func (s *TenderStoreSuite) TestUpdate() {
	ctx := context.Background()

	s.ErrorIs(s.store.Update(ctx, s.tender(1)), sentinel.ErrNotFound)

	s.Require().NoError(s.store.Insert(ctx, s.tender(1)))
	t := s.tender(1)
	t.Status = models.StatusAwarded
	s.Require().NoError(s.store.Update(ctx, t))

	got, err := s.store.FindByID(ctx, 1)
	s.Require().NoError(err)
	s.Equal(models.StatusAwarded, got.Status)
}

func (s *TenderStoreSuite) TestListOrdersByID() {
	ctx := context.Background()
	for _, id := range []domain.TenderID{3, 1, 2} {
		s.Require().NoError(s.store.Insert(ctx, s.tender(id)))
	}

	all, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	for i, t := range all {
		s.Equal(domain.TenderID(i+1), t.ID)
	}
}

func (s *TenderStoreSuite) TestLastIDIsHighWaterMark() {
	ctx := context.Background()

	last, err := s.store.LastID(ctx)
	s.Require().NoError(err)
	s.Equal(domain.TenderID(0), last)

	s.Require().NoError(s.store.Insert(ctx, s.tender(5)))
	s.Require().NoError(s.store.Insert(ctx, s.tender(2)))

	last, err = s.store.LastID(ctx)
	s.Require().NoError(err)
	s.Equal(domain.TenderID(5), last)
}
