package charm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asterplayer/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"유머 감각", "유머감각"},
		{"  Leader-Ship! ", "leadership"},
		{"자기\t계발\n의지", "자기계발의지"},
		{"★열정★", "열정"},
		{"ABC 123", "abc123"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestCategoryOf(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name   string
		charm  string
		want   Key
		wantOK bool
	}{
		{"exact", "다정함", Empathy, true},
		{"spacing variant", "공감능력", Empathy, true},
		{"alias principle", "원칙준수", Morality, true},
		{"alias humor", "유머감각", Humor, true},
		{"alias compound label", "이해심 및 공감 능력", Empathy, true},
		{"alias long label", "연락 등 관계를 이어가는 능력", Humor, true},
		{"query contains charm", "엄청난 호기심", Curiosity, true},
		{"charm contains query", "리더", Passion, true},
		{"punctuation ignored", "  책임감!! ", Responsibility, true},
		{"unknown", "우주 비행", "", false},
		{"empty", "", "", false},
		{"normalizes to empty", "?!", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.CategoryOf(tt.charm)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoryOf_FirstDeclaredWins(t *testing.T) {
	c := DefaultCatalog()

	// "능력" is a substring of charms in empathy ("공감 능력") and humor;
	// empathy is declared first.
	got, ok := c.CategoryOf("능력")
	require.True(t, ok)
	assert.Equal(t, Empathy, got)

	// "심" appears in 이해심 (empathy) before 책임감/인내심 (responsibility).
	got, ok = c.CategoryOf("심")
	require.True(t, ok)
	assert.Equal(t, Empathy, got)
}

func TestCategoryOf_Deterministic(t *testing.T) {
	c := DefaultCatalog()
	names := []string{"호기심", "열정", "모르는 것", "겸손", "유머감각", "리더"}

	first := make([]Key, len(names))
	for i, n := range names {
		first[i], _ = c.CategoryOf(n)
	}
	for round := 0; round < 5; round++ {
		for i := len(names) - 1; i >= 0; i-- {
			got, _ := c.CategoryOf(names[i])
			assert.Equal(t, first[i], got, "round %d name %q", round, names[i])
		}
	}
}

func TestDominant(t *testing.T) {
	c := DefaultCatalog()

	t.Run("empty list uses default", func(t *testing.T) {
		assert.Equal(t, Passion, c.Dominant(nil).Key)
		assert.Equal(t, Passion, c.Dominant([]model.CharmTrait{}).Key)
	})

	t.Run("unrecognized traits use default", func(t *testing.T) {
		got := c.Dominant([]model.CharmTrait{
			{CharmName: "우주 비행", Stage: 9},
			{CharmName: "???", Stage: 3},
		})
		assert.Equal(t, Passion, got.Key)
	})

	t.Run("heaviest category wins", func(t *testing.T) {
		got := c.Dominant([]model.CharmTrait{
			{CharmName: "호기심", Stage: 8},
			{CharmName: "유머 감각", Stage: 6},
		})
		assert.Equal(t, Curiosity, got.Key)
	})

	t.Run("weights accumulate", func(t *testing.T) {
		got := c.Dominant([]model.CharmTrait{
			{CharmName: "호기심", Stage: 8},
			{CharmName: "유머 감각", Stage: 5},
			{CharmName: "분위기 메이커", Stage: 5},
		})
		assert.Equal(t, Humor, got.Key)
	})

	t.Run("tie resolves by declaration order", func(t *testing.T) {
		// humor is listed first but stability is declared earlier
		got := c.Dominant([]model.CharmTrait{
			{CharmName: "유머 감각", Stage: 4},
			{CharmName: "침착함", Stage: 4},
		})
		assert.Equal(t, Stability, got.Key)
	})

	t.Run("matched zero weight beats default", func(t *testing.T) {
		got := c.Dominant([]model.CharmTrait{{CharmName: "정직함", Stage: 0}})
		assert.Equal(t, Morality, got.Key)
	})
}

func TestDominant_MalformedStage(t *testing.T) {
	c := DefaultCatalog()

	var traits []model.CharmTrait
	raw := `[{"charm_name":"호기심","stage":"abc"},{"charm_name":"열정","stage":null},{"charm_name":"다정함"},{"charm_name":"겸손","stage":"3"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &traits))

	assert.Equal(t, []Weight{
		{Key: Empathy, Weight: 0},
		{Key: Curiosity, Weight: 0},
		{Key: Stability, Weight: 3},
		{Key: Passion, Weight: 0},
	}, c.Weights(traits))
	assert.Equal(t, Stability, c.Dominant(traits).Key)
}

func TestCDImageAndColor(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, "/images/cd-yellow.png", c.CDImage([]model.CharmTrait{{CharmName: "창의성", Stage: 7}}))
	assert.Equal(t, "/images/cd-red.png", c.CDImage(nil))
	assert.Equal(t, "from-green-500", c.ColorOf("자존감").From)
	assert.Equal(t, "from-red-500", c.ColorOf("알 수 없음").From)
}

func TestAnalyze(t *testing.T) {
	c := DefaultCatalog()

	a := c.Analyze([]model.CharmTrait{
		{CharmName: "다정함", Stage: 8},
		{CharmName: "유머 감각", Stage: 6},
		{CharmName: "창의성", Stage: 7},
		{CharmName: "순간이동", Stage: 2},
	})

	assert.Equal(t, Empathy, a.Dominant)
	assert.Equal(t, "이해심 및 공감 능력", a.Name)
	assert.Equal(t, 3, a.Matched)
	assert.Equal(t, []string{"순간이동"}, a.Ignored)
	assert.Len(t, a.Weights, 3)
}

func TestCatalogLookup(t *testing.T) {
	c := DefaultCatalog()

	cats := c.Categories()
	require.Len(t, cats, 7)
	assert.Equal(t, Empathy, cats[0].Key)
	assert.Equal(t, Passion, cats[6].Key)

	cat, ok := c.Get(Morality)
	require.True(t, ok)
	assert.Equal(t, "도덕성 및 양심", cat.Name)

	_, ok = c.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, Passion, c.Default().Key)
}
