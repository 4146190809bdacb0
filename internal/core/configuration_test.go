package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigurationEqual(t *testing.T) {
	a := SE2(1, 2, 0.5)
	b := SE2(1, 2, 0.5)
	c := SE2(1, 2, 0.6)

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(GraphConfiguration(1)))
}

func TestConfigurationEuclideanDistance(t *testing.T) {
	a := SE2(0, 0, 0)
	b := SE2(3, 4, 0)
	require.InDelta(t, 5.0, a.EuclideanDistance(b), 1e-9)

	g1 := GraphConfiguration(1)
	g2 := GraphConfiguration(2)
	require.Equal(t, 1.0, g1.EuclideanDistance(g2))
	require.Equal(t, 0.0, g1.EuclideanDistance(g1))
}

func TestConfigurationHashConsistentWithEqual(t *testing.T) {
	a := SE2(1, 2, 0.5)
	b := SE2(1, 2, 0.5)
	require.True(t, a.Equal(b))
	require.Equal(t, a.Hash(), b.Hash())
}

func TestParseConfigurationKind(t *testing.T) {
	k, err := ParseConfigurationKind("ompl.se2")
	require.NoError(t, err)
	require.Equal(t, ConfigurationOMPLSE2, k)

	_, err = ParseConfigurationKind("bogus")
	require.Error(t, err)
}
