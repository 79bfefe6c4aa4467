package graph

import (
	"os"
	"sort"
	"strings"

	"github.com/graphclinic/gdmrag/model"
	"gopkg.in/yaml.v3"
)

// Lexicon holds the curated medical vocabulary used for lexical entity
// matching and question classification. The built-in lexicon covers the
// gestational diabetes domain; a YAML file can replace it.
type Lexicon struct {
	// Keywords are domain terms worth matching against graph entity names,
	// grouped by category for readability only.
	Keywords map[string][]string `yaml:"keywords"`
	// Synonyms expand a matched term into related entity names.
	Synonyms map[string][]string `yaml:"synonyms"`
	// Patterns map question phrasings to a query category.
	Patterns map[model.QueryCategory][]string `yaml:"patterns"`
	// Stopwords are excluded from the fallback token extraction.
	Stopwords []string `yaml:"stopwords"`
}

// DefaultLexicon returns the built-in gestational diabetes vocabulary.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Keywords: map[string][]string{
			"disease":      {"糖尿病", "高血压", "心脏病", "妊娠期糖尿病", "GDM", "妊高症", "贫血", "感染"},
			"symptom":      {"多饮", "多尿", "多食", "体重下降", "疲劳", "头痛", "水肿", "蛋白尿", "血压升高"},
			"treatment":    {"胰岛素", "运动", "饮食", "药物", "监测", "控制", "管理", "注射", "口服药"},
			"diagnostic":   {"血糖", "尿糖", "糖耐量", "检测", "筛查", "OGTT", "血压", "尿蛋白", "B超"},
			"risk":         {"遗传", "肥胖", "年龄", "家族史", "孕期", "高龄", "既往史", "BMI"},
			"nutrition":    {"食物", "营养", "热量", "碳水化合物", "蛋白质", "脂肪", "维生素"},
			"complication": {"早产", "巨大儿", "低血糖", "酮症", "羊水过多", "胎儿窘迫"},
		},
		Synonyms: map[string][]string{
			"糖尿病": {"妊娠期糖尿病", "2型糖尿病", "1型糖尿病"},
			"高血压": {"妊娠期高血压", "妊高症"},
			"感染":  {"泌尿系感染", "呼吸道感染"},
			"多饮":  {"烦渴", "口干"},
			"多尿":  {"尿频", "夜尿增多"},
			"疲劳":  {"乏力", "疲乏"},
			"血糖":  {"空腹血糖", "餐后血糖", "随机血糖"},
			"糖耐量": {"OGTT", "葡萄糖耐量试验"},
		},
		Patterns: map[model.QueryCategory][]string{
			model.CategorySymptom:    {"症状有哪些", "有什么症状", "什么症状", "症状是什么", "表现为", "有哪些表现"},
			model.CategoryDiagnosis:  {"如何诊断", "诊断方法", "怎么诊断", "如何检查", "检查什么", "诊断标准"},
			model.CategoryTreatment:  {"如何治疗", "治疗方法", "怎么治", "用什么药", "如何管理", "治疗"},
			model.CategoryCause:      {"什么原因", "为什么", "病因", "引起", "导致", "原因"},
			model.CategoryPrevention: {"如何预防", "预防方法", "怎样避免", "防止", "预防措施"},
			model.CategoryDiet:       {"饮食管理", "吃什么", "饮食", "食物", "营养", "不能吃", "应该吃"},
			model.CategoryRisk:       {"什么风险", "有什么风险", "危险因素", "风险因素", "风险", "高危", "容易得", "易患"},
		},
		Stopwords: []string{"什么", "哪些", "如何", "怎么", "怎样", "为什么", "有什么", "是什么", "哪种", "多少"},
	}
}

// LoadLexicon reads a lexicon from a YAML file.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	lexicon := &Lexicon{}
	if err := yaml.Unmarshal(data, lexicon); err != nil {
		return nil, err
	}

	return lexicon, nil
}

// Classify maps a question to a query category by lexical pattern match.
// The category order is fixed so classification is deterministic when a
// question matches several patterns.
func (l *Lexicon) Classify(query string) model.QueryCategory {
	order := []model.QueryCategory{
		model.CategorySymptom,
		model.CategoryDiagnosis,
		model.CategoryRisk,
		model.CategoryDiet,
		model.CategoryPrevention,
		model.CategoryCause,
		model.CategoryTreatment,
	}

	for _, category := range order {
		for _, pattern := range l.Patterns[category] {
			if strings.Contains(query, pattern) {
				return category
			}
		}
	}

	return model.CategoryGeneral
}

// MatchKeywords returns the lexicon keywords contained in the query, in
// deterministic category-then-list order.
func (l *Lexicon) MatchKeywords(query string) []string {
	categories := make([]string, 0, len(l.Keywords))
	for category := range l.Keywords {
		categories = append(categories, category)
	}
	// Map iteration order is unstable; sort keys for determinism.
	sort.Strings(categories)

	var matched []string
	seen := map[string]bool{}
	for _, category := range categories {
		for _, keyword := range l.Keywords[category] {
			if !seen[keyword] && strings.Contains(query, keyword) {
				seen[keyword] = true
				matched = append(matched, keyword)
			}
		}
	}

	return matched
}

// Expand returns the synonym expansions of a term, or nil.
func (l *Lexicon) Expand(term string) []string {
	return l.Synonyms[term]
}

// IsStopword reports whether the token is excluded from fallback matching.
func (l *Lexicon) IsStopword(token string) bool {
	for _, stopword := range l.Stopwords {
		if token == stopword {
			return true
		}
	}
	return false
}
