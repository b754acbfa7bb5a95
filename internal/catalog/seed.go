package catalog

import "strings"

// seedProducts is the embedded launch catalog. It mirrors the rows inserted
// by the seed migration and serves as the local search fallback when the
// database cannot answer.
var seedProducts = []*Product{
	{
		ID:          1,
		Name:        "시그니처 플래너",
		Price:       12000,
		Description: "갓생살기 프로젝트의 시작. 하루를 계획하는 데일리 플래너",
		Category:    "Stationery",
		Tags:        []string{"플래너", "다이어리", "계획"},
		ImageURL:    "🗓️",
		Stock:       25,
	},
	{
		ID:          2,
		Name:        "스터디용 타이머",
		Price:       9900,
		Description: "뽀모도로 집중 타이머. 공부 시간 측정의 필수템",
		Category:    "Tech",
		Tags:        []string{"타이머", "공부", "집중"},
		ImageURL:    "⏱️",
		Stock:       18,
	},
	{
		ID:          3,
		Name:        "굿노트 디지털 플래너",
		Price:       5000,
		Description: "아이패드 굿노트용 디지털 플래너 속지",
		Category:    "Digital",
		Tags:        []string{"굿노트", "디지털", "아이패드"},
		ImageURL:    "📱",
		Stock:       999,
	},
	{
		ID:          4,
		Name:        "스터디 간식 키트",
		Price:       15900,
		Description: "공부하다 출출할 때. 엄선된 간식 모음",
		Category:    "Food",
		Tags:        []string{"간식", "선물", "에너지"},
		ImageURL:    "🍪",
		Stock:       12,
	},
	{
		ID:          5,
		Name:        "계획 습관 포스터",
		Price:       8500,
		Description: "벽에 붙이는 습관 트래커 포스터",
		Category:    "Living",
		Tags:        []string{"포스터", "습관", "인테리어"},
		ImageURL:    "🖼️",
		Stock:       30,
	},
}

// searchSeed searches the embedded catalog by keyword, matching name,
// description and tags case-insensitively. Returns copies so callers cannot
// mutate the seed data.
func searchSeed(keyword string) []*Product {
	kw := strings.ToLower(strings.TrimSpace(keyword))
	if kw == "" {
		return nil
	}

	var out []*Product
	for _, p := range seedProducts {
		if matchesSeed(p, kw) {
			cp := *p
			cp.Tags = append([]string(nil), p.Tags...)
			out = append(out, &cp)
		}
	}
	return out
}

func matchesSeed(p *Product, kw string) bool {
	if strings.Contains(strings.ToLower(p.Name), kw) ||
		strings.Contains(strings.ToLower(p.Description), kw) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), kw) {
			return true
		}
	}
	return false
}
