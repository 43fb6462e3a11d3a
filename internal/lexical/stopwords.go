package lexical

// defaultStopwords holds question and filler words that carry no topic.
// Words shorter than MinKeywordRunes are dropped anyway and are not listed.
var defaultStopwords = []string{
	// English
	"about", "above", "after", "again", "also", "been", "before", "being", "below",
	"between", "both", "could", "does", "doing", "during", "each", "explain", "from",
	"further", "have", "having", "here", "into", "just", "know", "like", "many",
	"more", "most", "much", "only", "other", "over", "please", "same", "should",
	"show", "some", "such", "tell", "than", "that", "their", "them", "then",
	"there", "these", "they", "this", "those", "through", "under", "until", "very",
	"want", "were", "what", "whats", "when", "where", "which", "while", "whom",
	"whose", "will", "with", "would", "your", "yours",

	// Russian
	"будет", "были", "было", "быть", "вообще", "всего", "давай", "даже", "если",
	"есть", "какая", "какие", "каким", "какой", "какое", "когда", "котор", "который",
	"которая", "которые", "куда", "может", "можно", "надо", "него", "нужно", "очень",
	"пожалуйста", "потом", "почему", "расскажи", "расскажите", "сейчас", "сколько",
	"скажи", "скажите", "такая", "такие", "такой", "такое", "тогда", "только",
	"хочу", "чтобы", "этого", "этой", "этот", "эта", "этим", "этом",
}
