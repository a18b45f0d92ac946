package sentiment

import (
	"strings"
	"unicode"
)

// KeywordScorer is the lexicon fallback backend. It is always available and
// needs no model data or network access.
//
// The exclamation/question intensity rule amplifies whichever polarity
// already leads, so punctuation alone can push a borderline message to an
// extreme. That behavior is a documented heuristic, not a calibrated signal.
type KeywordScorer struct {
	positiveWords map[string]struct{}
	negativeWords map[string]struct{}
	severeWords   map[string]struct{}
	profanity     map[string]struct{}
	positiveEmoji []string
	negativeEmoji []string
}

// NewKeywordScorer builds the scorer with its fixed lexicons.
func NewKeywordScorer() *KeywordScorer {
	return &KeywordScorer{
		positiveWords: wordSet(
			"good", "great", "awesome", "excellent", "happy", "love", "wonderful",
			"amazing", "fantastic", "perfect", "best", "brilliant", "nice", "cool",
			"thanks", "thank", "appreciate", "beautiful", "lovely", "sweet", "kind",
			"joy", "pleased", "excited", "thrilled", "delighted", "glad", "blessed",
			"superb", "outstanding", "marvelous", "terrific",
		),
		negativeWords: wordSet(
			"bad", "terrible", "awful", "horrible", "hate", "worst", "poor",
			"disappointing", "sad", "angry", "annoying", "frustrated", "sorry",
			"wrong", "problem", "issue", "sucks", "stupid", "dumb", "idiot",
			"pathetic", "useless", "worthless", "disgusting", "sick", "cruel",
			"mean", "rude", "nasty", "vile", "evil", "ugly", "trash", "garbage",
		),
		severeWords: wordSet(
			"abuse", "abused", "abuser", "abusive", "assault", "assaulted",
			"attack", "attacked", "attacking", "violence", "violent", "violate",
			"violated", "violating", "rape", "raped", "raping", "molest", "harass",
			"harassment", "threat", "threaten", "threatened", "threatening",
			"kill", "murder", "die", "death", "hurt", "harm", "damage", "destroy",
			"torture", "torment", "terrorize", "stalk", "stalking", "predator",
			"victim", "trauma", "traumatic", "danger", "dangerous", "weapon",
		),
		profanity: wordSet(
			"fuck", "fucking", "fucked", "shit", "shitty", "damn", "damned",
			"hell", "bastard", "bitch", "ass", "asshole", "crap", "piss",
		),
		positiveEmoji: []string{"😊", "❤️", "👍", "😄", "🎉", "🥰", "😍", "🙏", "✨"},
		negativeEmoji: []string{"😢", "😠", "👎", "😞", "💔", "😡", "🤬"},
	}
}

// Name returns the backend identifier.
func (s *KeywordScorer) Name() string { return "keyword" }

// Threshold returns the symmetric classification threshold for this backend.
func (s *KeywordScorer) Threshold() float64 { return 0.2 }

// Score returns a sentiment score in [-1, 1] from lexicon hits. Severe
// vocabulary counts triple, profanity double, and shouting and repeated
// punctuation adjust the counts before the final ratio.
func (s *KeywordScorer) Score(text string) (float64, Meta) {
	lower := strings.ToLower(text)
	words := make(map[string]struct{})
	for _, w := range strings.Fields(lower) {
		words[w] = struct{}{}
	}

	positive := countHits(words, s.positiveWords)
	negative := countHits(words, s.negativeWords)

	// Severe/abusive vocabulary carries triple weight, profanity double.
	negative += countHits(words, s.severeWords) * 3
	negative += countHits(words, s.profanity) * 2

	// Emoji match against the raw text, not tokenized words.
	for _, e := range s.positiveEmoji {
		if strings.Contains(text, e) {
			positive++
		}
	}
	for _, e := range s.negativeEmoji {
		if strings.Contains(text, e) {
			negative++
		}
	}

	// Shouting: mostly-uppercase messages above trivial length read as
	// hostile.
	trimmed := strings.TrimSpace(text)
	if len(trimmed) > 10 {
		upper := 0
		for _, r := range text {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		if float64(upper)/float64(len([]rune(text))) > 0.7 {
			negative += 3
		}
	}

	// Repeated exclamation marks amplify whichever polarity already leads.
	exclaims := strings.Count(text, "!")
	if exclaims > 2 {
		if negative > positive {
			negative += exclaims / 2
		} else {
			positive += exclaims / 3
		}
	}

	// Repeated question marks read as concern or confusion.
	questions := strings.Count(text, "?")
	if questions > 2 {
		negative += questions / 3
	}

	total := positive + negative
	if total == 0 {
		return 0, Meta{"positive_hits": 0, "negative_hits": 0}
	}

	score := float64(positive-negative) / float64(total)
	return clamp(score), Meta{"positive_hits": positive, "negative_hits": negative}
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func countHits(words, lexicon map[string]struct{}) int {
	n := 0
	for w := range words {
		if _, ok := lexicon[w]; ok {
			n++
		}
	}
	return n
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
