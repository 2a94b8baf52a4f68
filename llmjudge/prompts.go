package llmjudge

import (
	"fmt"
	"unicode"
)

// Language selects which localized prompt templates the judge uses. It has no
// effect on scoring semantics.
type Language string

// Supported prompt languages.
const (
	LanguageEnglish Language = "en"
	LanguageChinese Language = "zh"
)

// chineseFractionThreshold is the fraction of CJK characters among
// non-whitespace characters above which text is classified as Chinese.
const chineseFractionThreshold = 0.3

// DetectLanguage classifies text as Chinese when more than 30% of its
// non-whitespace characters fall in the CJK Unified Ideographs range, and as
// English otherwise.
func DetectLanguage(text string) Language {
	chinese, total := 0, 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if r >= 0x4e00 && r <= 0x9fff {
			chinese++
		}
	}
	if total > 0 && float64(chinese)/float64(total) > chineseFractionThreshold {
		return LanguageChinese
	}
	return LanguageEnglish
}

const judgeSystemPrompt = "You are an impartial judge evaluating RAG system answers. " +
	"Be strict but fair. Output only valid JSON."

// BuildPrompts assembles the system and user prompts for one judge call. The
// detailed form asks for the five named dimensions on top of the overall
// score; both forms request a single JSON object with fixed key names.
// Compliance with that contract is validated by the judge, not here.
func BuildPrompts(question, goldenAnswer, candidateAnswer string, lang Language, detailed bool) (system, user string) {
	var tmpl string
	switch {
	case detailed && lang == LanguageChinese:
		tmpl = detailedPromptZH
	case detailed:
		tmpl = detailedPromptEN
	case lang == LanguageChinese:
		tmpl = basicPromptZH
	default:
		tmpl = basicPromptEN
	}
	return judgeSystemPrompt, fmt.Sprintf(tmpl, question, goldenAnswer, candidateAnswer)
}

const basicPromptEN = `Compare the RAG answer to the golden answer for this question.

Question: %s
Golden Answer: %s
RAG Answer: %s

Score 1-5:
- 5: Fully correct, semantically equivalent
- 4: Mostly correct, minor omissions
- 3: Partially correct, some errors
- 2: Mostly incorrect, major errors
- 1: Completely wrong or irrelevant

Output JSON: {"score": N, "reason": "brief explanation"}`

const basicPromptZH = `比较RAG系统的回答与标准答案。

问题: %s
标准答案: %s
RAG回答: %s

评分标准 (1-5分):
- 5: 完全正确，语义等价
- 4: 基本正确，有轻微遗漏
- 3: 部分正确，有一些错误
- 2: 大部分错误，有重大问题
- 1: 完全错误或无关

请输出JSON格式: {"score": 分数, "reason": "简短解释"}`

const detailedPromptEN = `You are an impartial judge evaluating a RAG system answer across multiple dimensions.

Question: %s
Golden Answer: %s
RAG Answer: %s

Score each dimension 1-5:

1. correctness: How semantically close is the answer to the golden answer?
   5=Fully correct  4=Mostly correct  3=Partially correct  2=Mostly wrong  1=Completely wrong

2. completeness: Does the answer cover all key points from the golden answer?
   5=Fully covered  4=Minor omissions  3=Some key points missing  2=Major gaps  1=Almost nothing covered

3. relevance: Does the answer actually address the question asked?
   5=Perfectly on-topic  4=Mostly on-topic  3=Partially off-topic  2=Mostly off-topic  1=Completely irrelevant

4. conciseness: Is the answer focused without unnecessary or irrelevant information?
   5=Concise and precise  4=Slightly verbose  3=Noticeably verbose  2=Mostly filler  1=Entirely off-track

5. faithfulness: Is the answer faithful to the golden answer without fabricating information?
   5=Fully faithful  4=Mostly faithful  3=Some unsupported claims  2=Significant fabrication  1=Mostly fabricated

Output JSON: {"score": N, "reason": "brief explanation", "correctness": N, "completeness": N, "relevance": N, "conciseness": N, "faithfulness": N}`

const detailedPromptZH = `你是一个公正的评审，对RAG系统的回答进行多维度评估。

问题: %s
标准答案: %s
RAG回答: %s

请从以下5个维度评分 (每项1-5分):

1. correctness (正确性): 回答与标准答案的语义一致程度
   5=完全正确 4=基本正确 3=部分正确 2=大部分错误 1=完全错误

2. completeness (完整性): 回答是否涵盖了标准答案中的所有关键信息
   5=完全覆盖 4=轻微遗漏 3=遗漏部分要点 2=遗漏大量信息 1=几乎未覆盖

3. relevance (相关性): 回答是否针对所提问题
   5=完全切题 4=基本切题 3=部分偏题 2=大部分偏题 1=完全无关

4. conciseness (简洁性): 回答是否简洁，没有多余或无关的信息
   5=简洁精准 4=略有冗余 3=有明显冗余 2=大量无关内容 1=完全冗余

5. faithfulness (忠实度): 回答是否忠实于标准答案中的信息，没有编造内容
   5=完全忠实 4=基本忠实 3=有一些不确定内容 2=有明显编造信息 1=大量编造信息

请输出JSON格式:
{"score": 综合分数, "reason": "简短解释", "correctness": 分数, "completeness": 分数, "relevance": 分数, "conciseness": 分数, "faithfulness": 分数}`
