package ai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rmehran/campuschat/internal/model"
)

func buildCourseworkSystemPrompt(doc *model.Document, lang model.Language) string {
	sel := doc.Selection
	text := truncateContent(doc.Text)

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an expert academic assistant for University of Roehampton students. "+
		"You are helping with the module: %q from the %s programme.\n\n", sel.ModuleName, sel.Programme)

	sb.WriteString(formatDocumentInfo(sel))
	sb.WriteString("\n\nDOCUMENT CONTENT:\n")
	sb.WriteString(text)

	sb.WriteString("\n\nINSTRUCTIONS:\n")
	sb.WriteString("- Answer questions based ONLY on the provided document content\n")
	if sel.AllFiles {
		sb.WriteString("- Clearly indicate which document contains specific information using the format **[Source: Document Name]**\n")
		sb.WriteString("- When referencing content, use the file names shown above for clarity\n")
	}
	sb.WriteString("- Be helpful and educational, explaining concepts clearly\n")
	sb.WriteString("- If information isn't in the document(s), say so clearly\n")
	sb.WriteString("- Provide specific references to sections when possible\n")
	sb.WriteString("- Help with coursework understanding, but don't do the work for the student\n")
	sb.WriteString("- Encourage critical thinking and learning\n")
	sb.WriteString("- Be supportive and encouraging\n")

	fmt.Fprintf(&sb, "\nCONTEXT:\n- Module: %s\n- Programme: %s\n- Materials: %s\n",
		sel.ModuleName, sel.Programme, materialsLabel(sel))

	sb.WriteString("\n")
	sb.WriteString(languageDirective(lang))
	sb.WriteString("\n\nRemember: You are helping a Roehampton University student understand their coursework materials.")
	if sel.AllFiles {
		sb.WriteString(" Always cite your sources when multiple documents are available.")
	}

	return sb.String()
}

func buildEthicsSystemPrompt(docText, studentID, programme string, lang model.Language) string {
	if studentID == "" {
		studentID = "Unknown"
	}
	if programme == "" {
		programme = "Unknown"
	}
	docText = truncateContent(docText)

	var sb strings.Builder
	sb.WriteString("You are an expert ethics advisor for University of Roehampton students. " +
		"You are helping with ethics guidance based on the \"Reforming Modernity\" document.\n\n")

	fmt.Fprintf(&sb, "STUDENT INFORMATION:\n- Student ID: %s\n- Programme: %s\n\n", studentID, programme)

	sb.WriteString("ETHICS DOCUMENT CONTENT:\n")
	sb.WriteString(docText)

	sb.WriteString("\n\nINSTRUCTIONS:\n")
	sb.WriteString("- Answer ethics questions based ONLY on the provided \"Reforming Modernity\" document content\n")
	sb.WriteString("- Provide thoughtful, well-reasoned ethical guidance based on what's actually in the document\n")
	sb.WriteString("- Reference specific sections, concepts, or examples from the document when relevant\n")
	sb.WriteString("- Help students understand and apply the ethical concepts presented in this document\n")
	sb.WriteString("- Encourage critical thinking about ethical issues as presented in the material\n")
	sb.WriteString("- Be supportive and educational in your approach\n")
	sb.WriteString("- If a question cannot be answered from the document content, clearly state this and suggest what topics the document does cover\n")
	sb.WriteString("- Always maintain academic integrity and professional ethics standards\n")

	sb.WriteString("\nCONTEXT:\n- Document: Reforming Modernity (University Ethics Material)\n" +
		"- Purpose: Ethics guidance based on this specific document\n- Audience: Roehampton University student\n")

	sb.WriteString("\n")
	sb.WriteString(languageDirective(lang))
	sb.WriteString("\n\nRemember: Base your responses strictly on the actual content of the \"Reforming Modernity\" document.")

	return sb.String()
}

// truncateContent caps document text at MaxContentLength bytes, backing
// off to a rune boundary so the prompt never carries a split rune.
func truncateContent(text string) string {
	if len(text) <= MaxContentLength {
		return text
	}
	cut := MaxContentLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

// formatDocumentInfo lists the source document(s) so the model can cite
// them by display name.
func formatDocumentInfo(sel model.ModuleSelection) string {
	if sel.AllFiles {
		var sb strings.Builder
		fmt.Fprintf(&sb, "Multiple documents loaded for %s:\n", sel.ModuleName)
		for _, d := range sel.Documents {
			fmt.Fprintf(&sb, "- %s (%s) - File: %s\n", d.DisplayName, d.CourseworkType, d.FileName)
		}
		return strings.TrimRight(sb.String(), "\n")
	}
	d := sel.Documents[0]
	return fmt.Sprintf("Document: %s (%s) - File: %s", d.DisplayName, d.CourseworkType, d.FileName)
}

func materialsLabel(sel model.ModuleSelection) string {
	if sel.AllFiles {
		return "All Materials"
	}
	return sel.Documents[0].CourseworkType
}

// languageDirective returns the response-language block for the system
// prompt. Arabic, French, and Spanish get detailed formal-register
// instructions; English a single line.
func languageDirective(lang model.Language) string {
	switch lang {
	case model.LangArabic:
		return `LANGUAGE REQUIREMENTS:
- RESPOND ENTIRELY IN ARABIC (Arabic)
- Use proper Arabic grammar and formal academic language
- Write from right to left as appropriate for Arabic
- Use Arabic academic terminology when available
- Maintain respectful and formal tone appropriate for Arabic academic context
- If you need to reference English terms or names, you may include them in parentheses after the Arabic translation`
	case model.LangFrench:
		return `LANGUAGE REQUIREMENTS:
- RESPOND ENTIRELY IN FRENCH (French)
- Use proper French grammar and academic language
- Use formal "vous" form when addressing the student
- Use French academic terminology when available
- Maintain professional and supportive tone appropriate for French academic context
- Use proper French accents and punctuation`
	case model.LangSpanish:
		return `LANGUAGE REQUIREMENTS:
- RESPOND ENTIRELY IN SPANISH (Spanish)
- Use proper Spanish grammar and academic language
- Use formal "usted" form when addressing the student
- Use Spanish academic terminology when available
- Maintain professional and supportive tone appropriate for Spanish academic context
- Use proper Spanish accents and punctuation`
	default:
		return "LANGUAGE: Respond in English."
	}
}
