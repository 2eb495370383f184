package model

import (
	"sort"
	"strings"
)

// MaxArticleTags is the most tags an article or a space may carry.
const MaxArticleTags = 5

// MaxExpertiseTags is the most expertise tags a profile may carry.
const MaxExpertiseTags = 10

// Tags is the fixed AI taxonomy. Order is the display order.
var Tags = []string{
	"LLMs",
	"RAG",
	"Agents",
	"Fine-tuning",
	"Prompting",

	"Vector DBs",
	"Embeddings",
	"Training",
	"Inference",

	"Ethics",
	"Safety",
	"Benchmarks",
	"Datasets",
	"Tools",

	"Computer Vision",
	"NLP",
	"Speech",
	"Robotics",
	"RL",
}

var tagDescriptions = map[string]string{
	"LLMs":            "Large Language Models - Foundation models like GPT, Claude, LLaMA",
	"RAG":             "Retrieval-Augmented Generation - Combining retrieval with generation",
	"Agents":          "AI Agents & Multi-agent systems",
	"Fine-tuning":     "Model fine-tuning techniques and best practices",
	"Prompting":       "Prompt engineering and optimization",
	"Vector DBs":      "Vector databases for similarity search",
	"Embeddings":      "Embedding models & techniques",
	"Training":        "Model training infrastructure and methods",
	"Inference":       "Model inference & deployment",
	"Ethics":          "AI ethics and responsible AI",
	"Safety":          "AI safety & alignment research",
	"Benchmarks":      "Evaluation metrics & benchmarks",
	"Datasets":        "Datasets & data preparation",
	"Tools":           "AI tools, frameworks, and libraries",
	"Computer Vision": "Computer vision applications and models",
	"NLP":             "Natural Language Processing",
	"Speech":          "Speech recognition & synthesis",
	"Robotics":        "Robotics & embodied AI",
	"RL":              "Reinforcement Learning",
}

var tagRelations = map[string][]string{
	"RAG":             {"Vector DBs", "Embeddings", "LLMs"},
	"Agents":          {"LLMs", "Tools", "Prompting"},
	"Fine-tuning":     {"LLMs", "Training", "Datasets"},
	"Prompting":       {"LLMs", "Agents"},
	"Vector DBs":      {"RAG", "Embeddings"},
	"Embeddings":      {"RAG", "Vector DBs", "NLP"},
	"Training":        {"Fine-tuning", "Datasets", "Inference"},
	"Inference":       {"Training", "Tools"},
	"Computer Vision": {"Training", "Datasets", "Inference"},
	"NLP":             {"LLMs", "Embeddings", "Prompting"},
	"Speech":          {"NLP", "Training"},
	"Robotics":        {"RL", "Computer Vision"},
	"RL":              {"Agents", "Robotics", "Training"},
}

// common spellings that should map onto a taxonomy tag
var tagVariations = map[string][]string{
	"LLMs":            {"llm", "language model", "gpt", "claude", "llama"},
	"RAG":             {"retrieval augmented", "retrieval-augmented"},
	"NLP":             {"natural language", "text processing"},
	"Computer Vision": {"image", "vision"},
	"RL":              {"reinforcement learning"},
	"Vector DBs":      {"vector database", "vectordb", "embedding database"},
}

// TagInfo describes one taxonomy tag. Returned by GET /api/tags.
type TagInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Related     []string `json:"related"`
}

// TagList is the response of GET /api/tags.
type TagList struct {
	Tags []TagInfo `json:"tags"`
}

// Taxonomy returns the full tag list with descriptions.
func Taxonomy() TagList {
	out := TagList{Tags: make([]TagInfo, 0, len(Tags))}
	for _, t := range Tags {
		related := tagRelations[t]
		if related == nil {
			related = []string{}
		}
		out.Tags = append(out.Tags, TagInfo{Name: t, Description: tagDescriptions[t], Related: related})
	}
	return out
}

// IsTag reports whether name is a taxonomy tag (exact match).
func IsTag(name string) bool {
	_, ok := tagDescriptions[name]
	return ok
}

// CanonicalTag maps a case-insensitive spelling onto its taxonomy tag.
func CanonicalTag(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, t := range Tags {
		if strings.EqualFold(t, name) {
			return t, true
		}
	}
	return "", false
}

// InvalidTags returns the entries of tags that are not in the taxonomy.
func InvalidTags(tags []string) []string {
	var bad []string
	for _, t := range tags {
		if !IsTag(t) {
			bad = append(bad, t)
		}
	}
	return bad
}

// RelatedTags returns up to limit tags related to tag.
func RelatedTags(tag string, limit int) []string {
	rel := tagRelations[tag]
	if limit > 0 && len(rel) > limit {
		rel = rel[:limit]
	}
	return append([]string(nil), rel...)
}

// SuggestTags scores every taxonomy tag against text by keyword matching
// and returns the best limit tags, highest confidence first.
func SuggestTags(text string, limit int) []string {
	text = strings.ToLower(text)
	type scored struct {
		tag   string
		score float64
	}
	var found []scored
	for i, tag := range Tags {
		lower := strings.ToLower(tag)
		score := 0.0
		if strings.Contains(text, lower) {
			score += 0.5
		}
		words := strings.Fields(lower)
		for _, w := range words {
			if len(w) > 3 && strings.Contains(text, w) {
				score += 0.3 / float64(len(words))
			}
		}
		for _, v := range tagVariations[tag] {
			if strings.Contains(text, v) {
				score += 0.4
			}
		}
		if score > 0 {
			found = append(found, scored{tag: Tags[i], score: score})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].score > found[j].score })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.tag
	}
	return out
}
