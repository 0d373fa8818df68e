package agents

import (
	"fmt"
	"strings"

	"github.com/example/draft-agent/internal/models"
	"github.com/example/draft-agent/internal/providers/llm"
	"github.com/example/draft-agent/internal/state"
)

var AnalysisSchema = llm.Schema{
	Name: "analysis",
	Shape: `{
  "signals": [{"type": "hiring|funding|techstack|expansion|news", "title": "string", "description": "string", "confidence": 0-100}],
  "companyContext": "string",
  "recommendedTone": "formal|casual|friendly|urgent",
  "keyInsights": ["string"]
}`,
}

var DraftSchema = llm.Schema{
	Name: "draft",
	Shape: `{
  "intent": {
    "signals": [{"type": "hiring|funding|techstack|expansion|news", "relevance": "string", "talkingPoint": "string"}],
    "tone": "formal|casual|friendly|urgent",
    "objective": "string"
  },
  "email": {"subject": "string, at most 100 characters", "body": "string", "callToAction": "string"},
  "alternatives": [{"subject": "string", "openingLine": "string"}] (at most 2)
}`,
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func analysisPrompt(s *state.State) string {
	c := s.Input.Contact
	var b strings.Builder
	b.WriteString("Analyze this contact and their company for sales outreach signals.\n\n")
	fmt.Fprintf(&b, "CONTACT:\n- Name: %s\n- Title: %s\n- Company: %s\n\n",
		c.Name, orDefault(c.Title, "Unknown"), orDefault(c.Company, "Unknown"))

	b.WriteString("KNOWN SIGNALS:\n")
	if len(s.Input.Signals) == 0 {
		b.WriteString("None\n")
	}
	for _, sig := range s.Input.Signals {
		fmt.Fprintf(&b, "- %s: %s\n", sig.Type, sig.Title)
	}

	fmt.Fprintf(&b, "\nCOMPANY WEBSITE CONTENT:\n%s\n\n", orDefault(s.Research.Content(), "No content available"))
	fmt.Fprintf(&b, "USER CONTEXT:\n%s\n\n", orDefault(s.Input.Context, "None provided"))
	b.WriteString("Extract intent signals (hiring, funding, techstack, expansion, news) with a confidence from 0 to 100, ")
	b.WriteString("summarize the company context relevant to outreach, pick the best tone ")
	b.WriteString("and list 2 to 4 insights usable for personalization.")
	return b.String()
}

func draftPrompt(s *state.State, signals []models.Signal) string {
	c := s.Input.Contact
	tone := models.ToneFriendly
	companyContext, insights := "No additional context", "None"
	if s.Analysis != nil {
		if s.Analysis.RecommendedTone != "" {
			tone = s.Analysis.RecommendedTone
		}
		companyContext = orDefault(s.Analysis.CompanyContext, companyContext)
		if len(s.Analysis.KeyInsights) > 0 {
			insights = "- " + strings.Join(s.Analysis.KeyInsights, "\n- ")
		}
	}

	var b strings.Builder
	b.WriteString("You are an expert sales copywriter. Write a personalized outreach email.\n\n")
	fmt.Fprintf(&b, "RECIPIENT:\n- Name: %s\n- Title: %s\n- Company: %s\n- Email: %s\n\n",
		c.Name, orDefault(c.Title, "Unknown"), orDefault(c.Company, "Unknown"), c.Email)
	fmt.Fprintf(&b, "COMPANY CONTEXT:\n%s\n\nKEY INSIGHTS:\n%s\n\n", companyContext, insights)

	b.WriteString("SIGNALS:\n")
	if len(signals) == 0 {
		b.WriteString("None\n")
	}
	for _, sig := range signals {
		fmt.Fprintf(&b, "- %s: %s - %s (%d%% confidence)\n",
			strings.ToUpper(string(sig.Type)), sig.Title, sig.Description, sig.Confidence)
	}
	fmt.Fprintf(&b, "\nTONE: %s\n", tone)
	if ctx := strings.TrimSpace(s.Input.Context); ctx != "" {
		fmt.Fprintf(&b, "\nADDITIONAL USER CONTEXT:\n%s\n", ctx)
	}
	b.WriteString(`
The email must reference the signals naturally, offer a clear value proposition,
end with one specific low-commitment call to action, keep the tone above and keep
the body under 150 words. Also suggest two alternative subject lines with opening lines.`)
	return b.String()
}
