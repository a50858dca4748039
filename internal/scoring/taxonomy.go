package scoring

// SkillCategory is one group of the built-in skills taxonomy.
type SkillCategory struct {
	Name   string
	Skills []string
}

// Taxonomy lists the skills recognized in free text, grouped by category.
// Matching is a case-insensitive substring test, so short names such as
// "go" also match inside longer words.
var Taxonomy = []SkillCategory{
	{Name: "programming", Skills: []string{"python", "java", "javascript", "c++", "c#", "ruby", "php", "swift", "kotlin", "go", "rust"}},
	{Name: "web", Skills: []string{"react", "angular", "vue", "html", "css", "node.js", "django", "flask", "fastapi", "express"}},
	{Name: "data", Skills: []string{"sql", "nosql", "mongodb", "postgresql", "mysql", "pandas", "numpy", "scikit-learn"}},
	{Name: "ml", Skills: []string{"machine learning", "deep learning", "tensorflow", "pytorch", "keras", "nlp", "computer vision"}},
	{Name: "cloud", Skills: []string{"aws", "azure", "gcp", "docker", "kubernetes", "jenkins", "ci/cd"}},
	{Name: "tools", Skills: []string{"git", "jira", "agile", "scrum", "rest api", "graphql", "microservices"}},
	{Name: "soft", Skills: []string{"leadership", "communication", "teamwork", "problem solving", "analytical", "project management"}},
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "this": {}, "that": {}, "from": {}, "have": {},
	"will": {}, "would": {}, "should": {}, "could": {}, "about": {}, "into": {}, "through": {},
}

// section keywords used by the formatting check
var atsSectionWords = []string{"experience", "education", "skills", "summary", "objective", "work", "employment"}

var (
	essentialSections = []string{"experience", "education", "skills"}
	optionalSections  = []string{"summary", "objective", "projects", "certifications"}
)

// headers counted by the feature vector
var featureHeaders = []string{"summary", "experience", "education", "skills", "projects", "achievements"}

const (
	minKeywordLength    = 4
	minKeywordFrequency = 2
	maxPhrases          = 20
)
