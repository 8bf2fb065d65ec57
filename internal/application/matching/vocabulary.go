// Package matching canonicalizes natural-language queries into cache keys
// and scores lexical similarity between queries.
package matching

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

type synonymGroup struct {
	canonical string
	variants  []string
}

// defaultSynonyms is a seed dictionary; order matters when a variant is
// listed under two canonicals (the later group wins).
var defaultSynonyms = []synonymGroup{
	{"list", []string{"show", "display", "ls", "dir", "列出", "显示", "查看"}},
	{"create", []string{"make", "new", "mkdir", "touch", "创建", "新建"}},
	{"delete", []string{"remove", "rm", "del", "unlink", "删除", "移除"}},
	{"copy", []string{"cp", "duplicate", "复制", "拷贝"}},
	{"move", []string{"mv", "rename", "移动", "重命名"}},
	{"find", []string{"search", "locate", "grep", "查找", "搜索"}},
	{"install", []string{"add", "setup", "安装", "添加"}},
	{"update", []string{"upgrade", "refresh", "更新", "升级"}},
	{"start", []string{"run", "execute", "launch", "启动", "运行"}},
	{"stop", []string{"kill", "terminate", "halt", "停止", "终止"}},
	{"status", []string{"check", "info", "state", "状态", "检查"}},
	{"download", []string{"fetch", "get", "pull", "下载", "获取"}},
	{"upload", []string{"push", "send", "上传", "发送"}},
	{"connect", []string{"link", "join", "连接", "链接"}},
	{"all", []string{"everything", "total", "全部", "所有"}},
	{"current", []string{"now", "present", "当前", "现在"}},
	{"recursive", []string{"r", "deep", "递归", "深度"}},
	{"force", []string{"f", "overwrite", "强制", "覆盖"}},
}

var defaultStopWords = []string{
	"a", "an", "the", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "do", "does", "did", "will", "would", "could", "should",
	"may", "might", "can", "must", "shall", "to", "of", "in", "on", "at",
	"by", "for", "with", "from", "up", "about", "into", "through", "during", "before",
	"after", "above", "below", "between", "among", "under", "over", "out", "off", "down",
	"so", "but", "and", "or", "not", "no", "nor", "as", "if", "than",
	"then", "now", "here", "there", "when", "where", "why", "how", "what", "which",
	"who", "whom", "this", "that", "these", "those", "my", "your", "his", "her",
	"its", "our", "their",
}

// Vocabulary holds the stop-word list and synonym folding table shared by
// the normalized hash strategy and the lexical matcher.
type Vocabulary struct {
	canonical map[string]string
	stopWords map[string]struct{}
	groups    map[string]int
}

// DefaultVocabulary returns a vocabulary seeded with the built-in dictionary.
func DefaultVocabulary() *Vocabulary {
	v := &Vocabulary{
		canonical: make(map[string]string),
		stopWords: make(map[string]struct{}, len(defaultStopWords)),
		groups:    make(map[string]int),
	}
	for _, word := range defaultStopWords {
		v.stopWords[word] = struct{}{}
	}
	for _, group := range defaultSynonyms {
		v.AddSynonyms(group.canonical, group.variants...)
	}
	return v
}

// AddSynonyms folds every variant (and the canonical word itself) onto canonical.
func (v *Vocabulary) AddSynonyms(canonical string, variants ...string) {
	canonical = strings.ToLower(strings.TrimSpace(canonical))
	if canonical == "" {
		return
	}
	v.canonical[canonical] = canonical
	for _, variant := range variants {
		variant = strings.ToLower(strings.TrimSpace(variant))
		if variant == "" {
			continue
		}
		v.canonical[variant] = canonical
		v.groups[canonical]++
	}
}

// AddStopWords extends the stop-word list.
func (v *Vocabulary) AddStopWords(words ...string) {
	for _, word := range words {
		if word = strings.ToLower(strings.TrimSpace(word)); word != "" {
			v.stopWords[word] = struct{}{}
		}
	}
}

// Normalize lowercases query, splits it into words, drops stop-words and
// folds synonyms. Word order and duplicates are preserved.
func (v *Vocabulary) Normalize(query string) []string {
	if query == "" {
		return nil
	}
	words := wordPattern.FindAllString(strings.ToLower(query), -1)
	normalized := make([]string, 0, len(words))
	for _, word := range words {
		if _, stop := v.stopWords[word]; stop {
			continue
		}
		if canonical, ok := v.canonical[word]; ok {
			word = canonical
		}
		normalized = append(normalized, word)
	}
	return normalized
}

// TokenSet returns the distinct normalized words of query.
func (v *Vocabulary) TokenSet(query string) map[string]struct{} {
	words := v.Normalize(query)
	set := make(map[string]struct{}, len(words))
	for _, word := range words {
		set[word] = struct{}{}
	}
	return set
}

// Stats reports the size of the dictionary.
func (v *Vocabulary) Stats() (synonymGroups, synonyms, stopWords int) {
	for _, n := range v.groups {
		synonyms += n
	}
	return len(v.groups), synonyms, len(v.stopWords)
}
