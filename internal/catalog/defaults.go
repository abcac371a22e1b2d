package catalog

import (
	"fmt"
	"strings"
)

// defaultPatterns is the canonical catalog. Order is significant: detection
// results and display follow it.
var defaultPatterns = []Pattern{
	// 对立句式
	{ID: "zh001", Rule: `不是[^，。]+而是`, Category: "对立句式", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `"不是...而是..."句式`, Alternatives: []string{`直接陈述后者`, `用"其实"引出`, `换用"更准确地说"`}},
	{ID: "zh002", Rule: `并不是[^，。]+而是`, Category: "对立句式", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `"并不是...而是..."`, Alternatives: []string{`去掉否定，直接说`}},
	{ID: "zh003", Rule: `与其说[^，。]+不如说`, Category: "对立句式", Language: LanguageChinese, Severity: SeverityMedium,
		Description: `"与其说...不如说..."`, Alternatives: []string{`直接表达后者观点`}},
	// 总结排比
	{ID: "zh004", Rule: `简单[一来]说`, Category: "总结排比", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `"简单来说/简单一句话"`, Alternatives: []string{`删除，直接说内容`}},
	{ID: "zh005", Rule: `一句话[概总]括`, Category: "总结排比", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `"一句话概括"`, Alternatives: []string{`删除`}},
	{ID: "zh006", Rule: `总[的而]言之`, Category: "总结排比", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `"总而言之/总的来说"`, Alternatives: []string{`删除或用"所以"`, `直接写结论`}},
	{ID: "zh007", Rule: `综上所述`, Category: "总结排比", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `"综上所述"`, Alternatives: []string{`删除`, `用"回到最初的问题"`}},
	// 缓和语
	{ID: "zh008", Rule: `值得注意的是`, Category: "缓和语", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `"值得注意的是"`, Alternatives: []string{`删除，直接说`, `用"另外"`}},
	{ID: "zh009", Rule: `需要[指强]调的是`, Category: "缓和语", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `"需要指出/强调的是"`, Alternatives: []string{`删除`}},
	{ID: "zh010", Rule: `不可否认`, Category: "缓和语", Language: LanguageChinese, Severity: SeverityMedium,
		Description: `"不可否认"`, Alternatives: []string{`删除`, `用"确实"`}},
	// 元叙述
	{ID: "zh011", Rule: `让我[们来]深入`, Category: "元叙述", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `"让我们深入探讨"`, Alternatives: []string{`删除，直接展开分析`}},
	{ID: "zh012", Rule: `接下来[我让]`, Category: "元叙述", Language: LanguageChinese, Severity: SeverityMedium,
		Description: `"接下来我会..."`, Alternatives: []string{`删除，直接写内容`}},
	{ID: "zh013", Rule: `换句话说`, Category: "元叙述", Language: LanguageChinese, Severity: SeverityMedium,
		Description: `"换句话说"`, Alternatives: []string{`删除`, `用"也就是"`}},
	{ID: "zh014", Rule: `说白了`, Category: "元叙述", Language: LanguageChinese, Severity: SeverityMedium,
		Description: `"说白了"口语化压缩`, Alternatives: []string{`删除`}},
	// 油腻表达
	{ID: "zh015", Rule: `兜住`, Category: "油腻表达", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `"兜住"`, Alternatives: []string{`用"承接""维持"`}},
	{ID: "zh016", Rule: `接住`, Category: "油腻表达", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `"接住"`, Alternatives: []string{`用"回应""处理"`}},
	{ID: "zh017", Rule: `收敛`, Category: "油腻表达", Language: LanguageChinese, Severity: SeverityMedium,
		Description: `"收敛"（非数学语境）`, Alternatives: []string{`用"减少""控制"`}},
	{ID: "zh018", Rule: `坍缩`, Category: "油腻表达", Language: LanguageChinese, Severity: SeverityMedium,
		Description: `"坍缩"（非物理语境）`, Alternatives: []string{`用"崩塌""瓦解"`}},
	{ID: "zh019", Rule: `张力`, Category: "油腻表达", Language: LanguageChinese, Severity: SeverityMedium,
		Description: `"张力"滥用`, Alternatives: []string{`用"矛盾""冲突""紧张"`}},
	// 自我修正
	{ID: "zh020", Rule: `我现在可以[冷平]静`, Category: "自我修正", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `模型声明自己的情绪状态`, Alternatives: []string{`删除整句`}},
	{ID: "zh021", Rule: `我换个[^，。]*语气`, Category: "自我修正", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `声明要换语气`, Alternatives: []string{`删除，直接用新语气`}},
	// 排比递进, 过渡词
	{ID: "zh022", Rule: `这不仅仅是[^，。]+更是`, Category: "排比递进", Language: LanguageChinese, Severity: SeverityHigh,
		Description: `"不仅仅是...更是..."`, Alternatives: []string{`分成两句独立表达`}},
	{ID: "zh023", Rule: `不仅[^，。]+而且`, Category: "排比递进", Language: LanguageChinese, Severity: SeverityMedium,
		Description: `"不仅...而且..."过度使用`, Alternatives: []string{`分开说`, `用"同时"`}},
	{ID: "zh024", Rule: `事实上`, Category: "过渡词", Language: LanguageChinese, Severity: SeverityMedium,
		Description: `"事实上"`, Alternatives: []string{`删除`, `用"其实"`}},
	{ID: "zh025", Rule: `毫无疑问`, Category: "过渡词", Language: LanguageChinese, Severity: SeverityMedium,
		Description: `"毫无疑问"`, Alternatives: []string{`删除`}},
	// 单字词
	{ID: "zh026", Rule: `(?<=[，。])拆(?=[，。开来])`, Category: "单字词", Language: LanguageChinese, Severity: SeverityLow,
		Description: `单字词"拆"滥用`, Alternatives: []string{`拆解`, `分析`, `拆分`}},
	{ID: "zh027", Rule: `(?<=[，。])搞(?=[，。])`, Category: "单字词", Language: LanguageChinese, Severity: SeverityLow,
		Description: `单字词"搞"`, Alternatives: []string{`做`, `进行`, `处理`}},
	// Filler and transitions
	{ID: "en001", Rule: `It'?s worth noting that`, Category: "Filler phrases", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"It's worth noting that"`, Alternatives: []string{`Delete entirely`, `Just state the fact`}},
	{ID: "en002", Rule: `[Ll]et'?s delve into`, Category: "Filler phrases", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"Let's delve into"`, Alternatives: []string{`Delete`, `Just start the analysis`}},
	{ID: "en003", Rule: `[Ii]n today'?s (rapidly )?(evolving|changing)`, Category: "Filler phrases", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"In today's rapidly evolving..."`, Alternatives: []string{`Delete`, `Be specific about what changed`}},
	{ID: "en004", Rule: `[Ii]t'?s important to (note|understand|recognize)`, Category: "Filler phrases", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"It's important to note..."`, Alternatives: []string{`Delete, just say it`}},
	{ID: "en005", Rule: `[Ff]urthermore`, Category: "Transitions", Language: LanguageEnglish, Severity: SeverityMedium,
		Description: `"Furthermore" overuse`, Alternatives: []string{`Also`, `And`, `Delete`}},
	{ID: "en006", Rule: `[Mm]oreover`, Category: "Transitions", Language: LanguageEnglish, Severity: SeverityMedium,
		Description: `"Moreover"`, Alternatives: []string{`Also`, `And`, `On top of that`}},
	{ID: "en007", Rule: `[Hh]owever,? it`, Category: "Transitions", Language: LanguageEnglish, Severity: SeverityMedium,
		Description: `"However" as sentence starter`, Alternatives: []string{`But`, `Though`, `That said`}},
	{ID: "en008", Rule: `[Ii]n conclusion`, Category: "Summary", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"In conclusion"`, Alternatives: []string{`Delete`, `So`, `The takeaway`}},
	// Structure
	{ID: "en009", Rule: `[Nn]ot [^,.]+ but (rather|instead)`, Category: "Contrast structure", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"Not X, but Y" structure`, Alternatives: []string{`State Y directly`, `Use "actually"`}},
	{ID: "en010", Rule: `[Ww]hile [^,.]+ (it'?s|this|there)`, Category: "Hedging", Language: LanguageEnglish, Severity: SeverityMedium,
		Description: `"While X, it's Y" hedge`, Alternatives: []string{`Make two direct sentences`}},
	{ID: "en011", Rule: `[Tt]his is not just [^,.]+ (this is|it'?s)`, Category: "Contrast structure", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"This is not just X, it's Y"`, Alternatives: []string{`State what it IS`}},
	// Sycophancy
	{ID: "en012", Rule: `[Gg]reat question`, Category: "Sycophancy", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"Great question!"`, Alternatives: []string{`Delete entirely`}},
	{ID: "en013", Rule: `[Aa]bsolutely[!.]`, Category: "Sycophancy", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"Absolutely!"`, Alternatives: []string{`Delete`, `Yes`}},
	{ID: "en014", Rule: `I'?d be happy to help`, Category: "Sycophancy", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"I'd be happy to help"`, Alternatives: []string{`Delete, just help`}},
	{ID: "en015", Rule: `[Tt]hat'?s a (great|excellent|fantastic)`, Category: "Sycophancy", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"That's a great..."`, Alternatives: []string{`Delete`}},
	// Formatting
	{ID: "en016", Rule: `— [a-z]`, Category: "Formatting", Language: LanguageEnglish, Severity: SeverityLow,
		Description: `Overuse of em dashes`, Alternatives: []string{`Use commas or periods`, `Restructure sentence`}},
	// Hedging
	{ID: "en017", Rule: `[Ii]t'?s worth mentioning`, Category: "Hedging", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"It's worth mentioning"`, Alternatives: []string{`Delete`}},
	{ID: "en018", Rule: `[Ii]nterestingly`, Category: "Hedging", Language: LanguageEnglish, Severity: SeverityMedium,
		Description: `"Interestingly,"`, Alternatives: []string{`Delete`, `Let the reader decide if it's interesting`}},
	{ID: "en019", Rule: `[Aa]s we( can)? see`, Category: "Hedging", Language: LanguageEnglish, Severity: SeverityMedium,
		Description: `"As we can see"`, Alternatives: []string{`Delete`}},
	{ID: "en020", Rule: `[Uu]ltimately`, Category: "Summary", Language: LanguageEnglish, Severity: SeverityMedium,
		Description: `"Ultimately"`, Alternatives: []string{`Delete`, `So`}},
	// Wordy and colloquial
	{ID: "en021", Rule: `[Ii]t is (important|crucial|essential|vital) to`, Category: "Wordy", Language: LanguageEnglish, Severity: SeverityMedium,
		Description: `"It is important/crucial to..."`, Alternatives: []string{`Delete, just state what to do`}},
	{ID: "en022", Rule: `[Ii]n the realm of`, Category: "Wordy", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"In the realm of"`, Alternatives: []string{`In`, `For`, `Delete`}},
	{ID: "en023", Rule: `[Ll]et me (explain|break)`, Category: "Meta-narration", Language: LanguageEnglish, Severity: SeverityMedium,
		Description: `"Let me explain/break down"`, Alternatives: []string{`Delete, just explain`}},
	{ID: "en024", Rule: `[Hh]ere'?s the (thing|deal|catch)`, Category: "Colloquial", Language: LanguageEnglish, Severity: SeverityMedium,
		Description: `"Here's the thing"`, Alternatives: []string{`Delete`}},
	{ID: "en025", Rule: `[Aa]t the end of the day`, Category: "Cliché", Language: LanguageEnglish, Severity: SeverityHigh,
		Description: `"At the end of the day"`, Alternatives: []string{`Delete`, `So`}},
}

// compactIDs is the reduced set served by the lightweight rewrite endpoint.
// It has no low-severity entries.
var compactIDs = []string{
	"zh001", "zh004", "zh006", "zh007", "zh008", "zh009", "zh011", "zh015", "zh016", "zh022",
	"en001", "en002", "en003", "en008", "en009", "en012", "en014",
	"zh013", "zh024", "en005", "en006",
}

// Default returns the canonical catalog
func Default(opts ...Option) *Catalog {
	return MustNew(defaultPatterns, opts...)
}

// Compact returns the reduced endpoint catalog. Entries use the canonical
// rules and keep canonical order.
func Compact(opts ...Option) *Catalog {
	c, err := Default(opts...).Subset(compactIDs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Load resolves a catalog by name ("full" or "compact"). A non-empty file
// takes precedence over the name.
func Load(name, file string, opts ...Option) (*Catalog, error) {
	if file != "" {
		return LoadFile(file, opts...)
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "full":
		return Default(opts...), nil
	case "compact":
		return Compact(opts...), nil
	default:
		return nil, fmt.Errorf("unknown catalog %q", name)
	}
}
