//go:build integration

package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"tenderledger/pkg/testutil/containers"
)

type RedisCheckpointsSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cps   *RedisCheckpoints
}

func TestRedisCheckpointsSuite(t *testing.T) {
	suite.Run(t, new(RedisCheckpointsSuite))
}

func (s *RedisCheckpointsSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cps = NewRedisCheckpoints(s.redis.Client, "")
}

func (s *RedisCheckpointsSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisCheckpointsSuite) TestLoadWithoutCheckpointStartsAtZero() {
	seq, err := s.cps.Load(context.Background())
	s.Require().NoError(err)
	s.Equal(uint64(0), seq)
}

func (s *RedisCheckpointsSuite) TestSaveThenLoadRoundTrips() {
	ctx := context.Background()

	s.Require().NoError(s.cps.Save(ctx, 42))
	seq, err := s.cps.Load(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(42), seq)

	s.Require().NoError(s.cps.Save(ctx, 43))
	seq, err = s.cps.Load(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(43), seq)
}

func (s *RedisCheckpointsSuite) TestCustomKeyIsolation() {
	ctx := context.Background()
	other := NewRedisCheckpoints(s.redis.Client, "tenderledger:relay:other")

	s.Require().NoError(s.cps.Save(ctx, 7))
	seq, err := other.Load(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(0), seq)
}
