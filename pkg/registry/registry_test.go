package registry_test

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/registry"
	"github.com/aretw0/stanza/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RatingMonotonicity(t *testing.T) {
	reg := registry.NewRegistry()
	a := reg.MustRegister("", []string{"Click", `[id](\d+)`}, nil)
	b := reg.MustRegister("", []string{"Click", "[id]"}, nil)

	require.NoError(t, reg.CalculateRoutesRating())

	assert.Greater(t, a.Rating(), b.Rating())
	assert.Equal(t, 1, a.Rating())
	assert.Equal(t, 0, b.Rating())

	found, err := reg.Search("Click\t42")
	require.NoError(t, err)
	assert.Same(t, a, found, "the more specific route wins")

	found, err = reg.Search("Click\tsubmit")
	require.NoError(t, err)
	assert.Same(t, b, found)
}

func TestRegistry_RatingChain(t *testing.T) {
	reg := registry.NewRegistry()
	general := reg.MustRegister("", []string{"[any]{0}"}, nil)
	click := reg.MustRegister("", []string{"Click", "[id]"}, nil)
	digits := reg.MustRegister("", []string{"Click", `[id](\d+)`}, nil)

	require.NoError(t, reg.CalculateRoutesRating())

	assert.Equal(t, 0, general.Rating())
	assert.Equal(t, 1, click.Rating())
	assert.Equal(t, 2, digits.Rating())
}

func TestRegistry_Disambiguation(t *testing.T) {
	t.Run("Lazy", func(t *testing.T) {
		reg := registry.NewRegistry(registry.WithStrategy(registry.StrategyLazy))
		first := reg.MustRegister("", []string{"Foo", "[x]"}, nil)
		reg.MustRegister("", []string{"Foo", "[y]"}, nil)
		require.NoError(t, reg.CalculateRoutesRating())

		found, err := reg.Search("Foo\tbar")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Same(t, first, found, "first registered wins a tie")
	})

	t.Run("Strict", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		reg := registry.NewRegistry(registry.WithLogger(logger))
		reg.MustRegister("", []string{"Foo", "[x]"}, nil)
		reg.MustRegister("", []string{"Foo", "[y]"}, nil)
		require.NoError(t, reg.CalculateRoutesRating())

		found, err := reg.Search("Foo\tbar")
		assert.Nil(t, found)
		assert.ErrorIs(t, err, domain.ErrAmbiguousRoute)

		var re *domain.RouteError
		require.True(t, errors.As(err, &re))
		assert.Len(t, re.Candidates, 2)
		assert.Contains(t, buf.String(), "Ambiguous route")
		assert.Contains(t, buf.String(), "Foo [y]")
	})
}

func TestRegistry_UIScenario(t *testing.T) {
	reg := registry.NewRegistry()
	click := reg.MustRegister("UI", []string{"Click", "[locator](id=.*)"}, "click")
	require.NoError(t, reg.CalculateRoutesRating())

	found, err := reg.Search("Click\tid=loginBtn")
	require.NoError(t, err)
	assert.Same(t, click, found)
	assert.Equal(t, "UI", found.Group())
	assert.Equal(t, "click", found.Action())

	found, err = reg.Search("Type\tid=loginBtn")
	assert.Nil(t, found)
	assert.ErrorIs(t, err, domain.ErrNoRouteFound)
}

func TestRegistry_PatternNarrowsDefault(t *testing.T) {
	reg := registry.NewRegistry()
	byID := reg.MustRegister("UI", []string{"Click", "[locator](id=.*)"}, "click")
	generic := reg.MustRegister("UI", []string{"Click", "[locator]"}, "click")
	nonEmpty := reg.MustRegister("", []string{"Wait", "[n](.+)"}, nil)
	wait := reg.MustRegister("", []string{"Wait", "[n]"}, nil)
	require.NoError(t, reg.CalculateRoutesRating())

	assert.Equal(t, 1, byID.Rating())
	assert.Equal(t, 0, generic.Rating())
	assert.Equal(t, 1, nonEmpty.Rating())
	assert.Equal(t, 0, wait.Rating())

	require.Equal(t, registry.StrategyStrict, reg.Strategy())
	found, err := reg.Search("Click\tid=loginBtn")
	require.NoError(t, err)
	assert.Same(t, byID, found)

	found, err = reg.Search("Click\tcss=.btn")
	require.NoError(t, err)
	assert.Same(t, generic, found)

	found, err = reg.Search("Wait\t5")
	require.NoError(t, err)
	assert.Same(t, nonEmpty, found)

	found, err = reg.Search("Wait")
	require.NoError(t, err)
	assert.Same(t, wait, found)
}

func TestRegistry_NoRouteCandidates(t *testing.T) {
	var buf bytes.Buffer
	reg := registry.NewRegistry(registry.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	reg.MustRegister("", []string{"Click", `[id](\d+)`}, nil)
	reg.MustRegister("", []string{"Open", "[url]"}, nil)
	require.NoError(t, reg.CalculateRoutesRating())

	_, err := reg.Search("Click\tabc")
	var re *domain.RouteError
	require.True(t, errors.As(err, &re))
	require.Len(t, re.Candidates, 1)
	assert.Equal(t, "Click", re.Candidates[0].Name())
	assert.Contains(t, buf.String(), "No route found")
}

func TestRegistry_ReadyBarrier(t *testing.T) {
	reg := registry.NewRegistry()
	reg.MustRegister("", []string{"Open", "[url]"}, nil)

	assert.False(t, reg.Ready())
	_, err := reg.Search("Open\tx")
	assert.ErrorIs(t, err, domain.ErrRegistryNotReady)

	require.NoError(t, reg.CalculateRoutesRating())
	assert.True(t, reg.Ready())

	assert.ErrorIs(t, reg.CalculateRoutesRating(), domain.ErrRegistrySealed)
	_, err = reg.Register("", []string{"Close"}, nil)
	assert.ErrorIs(t, err, domain.ErrRegistrySealed)
}

func TestRegistry_InvalidDeclaration(t *testing.T) {
	reg := registry.NewRegistry()
	_, err := reg.Register("", []string{"Set", "[x]", "to", "[x]"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.Empty(t, reg.Routes())
}

func TestRegistry_Groups(t *testing.T) {
	reg := registry.NewRegistry()
	reg.MustRegister("UI", []string{"Click", "[id]"}, nil)
	reg.MustRegister("", []string{"Print", "[message]{0}"}, nil)
	reg.MustRegister("UI", []string{"Type", "[text]", "into", "[field]"}, nil)

	groups := reg.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "UI", groups[0].Name)
	assert.Len(t, groups[0].Routes(), 2)
	assert.Equal(t, registry.DefaultGroup, groups[1].Name)
	assert.Len(t, reg.Routes(), 3)
	assert.Len(t, reg.RoutesByName("Type"), 1)
}

func TestRegistry_TabOrSpace(t *testing.T) {
	cfg := route.Config{Delimiter: route.DelimiterTabOrSpace, EscapeConstants: true}
	reg := registry.NewRegistry(registry.WithConfig(cfg))
	open := reg.MustRegister("", []string{"Open", `[url](\S+)`}, nil)
	require.NoError(t, reg.CalculateRoutesRating())

	found, err := reg.Search("Open http://x")
	require.NoError(t, err)
	assert.Same(t, open, found)

	_, err = reg.Search("Close now")
	var re *domain.RouteError
	require.True(t, errors.As(err, &re))
	assert.Empty(t, re.Candidates)
}

func TestRegistry_ConcurrentSearch(t *testing.T) {
	reg := registry.NewRegistry()
	click := reg.MustRegister("", []string{"Click", `[id](\d+)`}, nil)
	reg.MustRegister("", []string{"Click", "[id]"}, nil)
	require.NoError(t, reg.CalculateRoutesRating())

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			found, err := reg.Search("Click\t7")
			if err != nil {
				errs <- err
				return
			}
			if found != click {
				errs <- errors.New("wrong route")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := registry.ParseStrategy("LAZY")
	require.NoError(t, err)
	assert.Equal(t, registry.StrategyLazy, s)

	s, err = registry.ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, registry.StrategyStrict, s)

	_, err = registry.ParseStrategy("eager")
	assert.Error(t, err)
}
