// Package charm classifies free-text charm traits into the seven fixed
// categories that drive track colors and disc artwork.
package charm

// Key identifies a category.
type Key string

const (
	Empathy        Key = "empathy"
	Responsibility Key = "responsibility"
	Curiosity      Key = "curiosity"
	Stability      Key = "stability"
	Morality       Key = "morality"
	Humor          Key = "humor"
	Passion        Key = "passion"
)

// DefaultKey is returned whenever nothing matches.
const DefaultKey = Passion

// ClassSet is the tailwind class set used by the web UI.
type ClassSet struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Border string `json:"border"`
	Text   string `json:"text"`
}

// RGBSet holds "r, g, b" triplets for canvas drawing.
type RGBSet struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
	Dark      string `json:"dark"`
	Darker    string `json:"darker"`
}

// Category is one fixed trait grouping.
type Category struct {
	Key         Key      `json:"key"`
	Name        string   `json:"name"`
	Color       ClassSet `json:"color"`
	ColorValues RGBSet   `json:"colorValues"`
	CDImage     string   `json:"cdImage"`
	Charms      []string `json:"charms"`

	normalized []string
}

// Catalog is the immutable category table. Build it once with
// DefaultCatalog and share the pointer; it is safe for concurrent use.
type Catalog struct {
	categories []*Category
	byKey      map[Key]*Category
	aliases    map[string]string
	fallback   *Category
}

// DefaultCatalog builds the seven Aster categories in declaration order.
// Declaration order is significant: it decides classification for names
// that match more than one category and breaks weight ties.
func DefaultCatalog() *Catalog {
	return newCatalog([]*Category{
		{
			Key:         Empathy,
			Name:        "이해심 및 공감 능력",
			Color:       ClassSet{From: "from-pink-500", To: "to-pink-700", Border: "border-pink-400", Text: "text-pink-300"},
			ColorValues: RGBSet{Primary: "236, 72, 153", Secondary: "190, 24, 93", Dark: "131, 24, 67", Darker: "80, 7, 36"},
			CDImage:     "/images/cd-pink.png",
			Charms:      []string{"다정함", "공감 능력", "이해심", "배려심", "경청 능력", "위로 능력", "섬세함"},
		},
		{
			Key:         Responsibility,
			Name:        "성실성 및 책임감",
			Color:       ClassSet{From: "from-cyan-500", To: "to-cyan-700", Border: "border-cyan-400", Text: "text-cyan-300"},
			ColorValues: RGBSet{Primary: "6, 182, 212", Secondary: "14, 116, 144", Dark: "22, 78, 99", Darker: "8, 51, 68"},
			CDImage:     "/images/cd-cyan.png",
			Charms:      []string{"성실함", "책임감", "인내심", "계획성", "세심함", "신중함", "절제력"},
		},
		{
			Key:         Curiosity,
			Name:        "지적 호기심 및 개방성",
			Color:       ClassSet{From: "from-yellow-500", To: "to-yellow-700", Border: "border-yellow-400", Text: "text-yellow-300"},
			ColorValues: RGBSet{Primary: "234, 179, 8", Secondary: "161, 98, 7", Dark: "113, 63, 18", Darker: "66, 32, 6"},
			CDImage:     "/images/cd-yellow.png",
			Charms:      []string{"호기심", "창의성", "열린 마음", "모험심", "비판적 사고력", "통찰력", "넓은 시야", "집중력"},
		},
		{
			Key:         Stability,
			Name:        "정서적 안정 및 자기 인식",
			Color:       ClassSet{From: "from-green-500", To: "to-green-700", Border: "border-green-400", Text: "text-green-300"},
			ColorValues: RGBSet{Primary: "34, 197, 94", Secondary: "21, 128, 61", Dark: "20, 83, 45", Darker: "5, 46, 22"},
			CDImage:     "/images/cd-green.png",
			Charms:      []string{"침착함", "안정감", "자기 성찰", "긍정적", "현실 감각", "자기 객관화", "자존감", "겸손"},
		},
		{
			Key:         Morality,
			Name:        "도덕성 및 양심",
			Color:       ClassSet{From: "from-blue-500", To: "to-blue-700", Border: "border-blue-400", Text: "text-blue-300"},
			ColorValues: RGBSet{Primary: "59, 130, 246", Secondary: "29, 78, 216", Dark: "30, 58, 138", Darker: "23, 37, 84"},
			CDImage:     "/images/cd-blue.png",
			Charms:      []string{"정직함", "양심", "일관성", "원칙 준수", "진정성", "약자보호"},
		},
		{
			Key:         Humor,
			Name:        "유머감각및 사교성",
			Color:       ClassSet{From: "from-orange-500", To: "to-orange-700", Border: "border-orange-400", Text: "text-orange-300"},
			ColorValues: RGBSet{Primary: "249, 115, 22", Secondary: "194, 65, 12", Dark: "124, 45, 18", Darker: "67, 20, 7"},
			CDImage:     "/images/cd-orange.png",
			Charms:      []string{"유머 감각", "분위기 메이커", "다양한 친분", "타인을 편하게 해주는 능력", "연락 등 관계를 이어가는 능력", "사교적 에너지"},
		},
		{
			Key:         Passion,
			Name:        "목표 지향성 및 야망",
			Color:       ClassSet{From: "from-red-500", To: "to-red-700", Border: "border-red-400", Text: "text-red-300"},
			ColorValues: RGBSet{Primary: "239, 68, 68", Secondary: "185, 28, 28", Dark: "127, 29, 29", Darker: "69, 10, 10"},
			CDImage:     "/images/cd-red.png",
			Charms:      []string{"목표 의식", "열정", "자기 계발 의지", "리더십", "야망", "경쟁심", "전략적 사고"},
		},
	}, map[string]string{
		"원칙준수":         "원칙 준수",
		"약자보호":         "약자보호",
		"현실감각":         "현실 감각",
		"유머감각":         "유머 감각",
		"이해심및공감능력":     "이해심",
		"연락등관계를이어가는능력": "연락 등 관계를 이어가는 능력",
	}, DefaultKey)
}

func newCatalog(categories []*Category, aliases map[string]string, fallback Key) *Catalog {
	c := &Catalog{
		categories: categories,
		byKey:      make(map[Key]*Category, len(categories)),
		aliases:    make(map[string]string, len(aliases)),
	}
	for _, cat := range categories {
		cat.normalized = make([]string, 0, len(cat.Charms))
		for _, name := range cat.Charms {
			cat.normalized = append(cat.normalized, Normalize(name))
		}
		c.byKey[cat.Key] = cat
	}
	// alias lookup is keyed by the normalized spelling
	for variant, canonical := range aliases {
		c.aliases[Normalize(variant)] = canonical
	}
	c.fallback = c.byKey[fallback]
	return c
}

// Categories returns the categories in declaration order. The returned
// slice is a copy; the categories themselves must not be modified.
func (c *Catalog) Categories() []*Category {
	out := make([]*Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Get looks a category up by key.
func (c *Catalog) Get(key Key) (*Category, bool) {
	cat, ok := c.byKey[key]
	return cat, ok
}

// Default returns the fallback category.
func (c *Catalog) Default() *Category {
	return c.fallback
}
