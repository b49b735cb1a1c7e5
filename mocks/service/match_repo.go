// Package mockedService holds testify mocks of the service dependencies.
package mockedService

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
)

type MockMatchRepo struct {
	mock.Mock
}

// NewMockMatchRepo creates a mock and asserts its expectations when the test ends.
func NewMockMatchRepo(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockMatchRepo {
	m := &MockMatchRepo{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (that *MockMatchRepo) Save(ctx context.Context, match *entity.Match, events []entity.Event) error {
	args := that.Called(ctx, match, events)
	return args.Error(0)
}

func (that *MockMatchRepo) GetByID(ctx context.Context, id string) (*entity.Match, error) {
	args := that.Called(ctx, id)

	match, _ := args.Get(0).(*entity.Match)

	return match, args.Error(1)
}

func (that *MockMatchRepo) EventsAfter(ctx context.Context, id string, seq uint64) ([]entity.Event, error) {
	args := that.Called(ctx, id, seq)

	events, _ := args.Get(0).([]entity.Event)

	return events, args.Error(1)
}

func (that *MockMatchRepo) DeleteByID(ctx context.Context, id string) error {
	args := that.Called(ctx, id)
	return args.Error(0)
}
