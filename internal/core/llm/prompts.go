package llm

import "strings"

// NotesPrompt turns one chunk of course material into study notes.
const NotesPrompt = `You are an expert tutor writing study notes for a university student.

Turn the material below into clear, well-organised study notes in Markdown.

Guidelines:
- Start with a short overview of what the material covers.
- Use headings (##, ###) that follow the structure of the material.
- Explain every key concept in plain language and keep important definitions, formulas and dates exact.
- Add worked examples where the material includes them.
- Finish with a "Key Takeaways" list of the most important points.
- Do not invent facts that are not supported by the material.

Material:
{chunk}

Study notes:`

// FlashcardPrompt asks for 8-15 flashcards from source content.
const FlashcardPrompt = `You are creating flashcards to help a student review the content below.

Create between 8 and 15 flashcards. Each flashcard must have:
- "front": a focused question, term or prompt
- "back": a concise, accurate answer or explanation
- "category": the topic the card belongs to
- "difficulty": one of "easy", "medium" or "hard"

Cover the most important concepts, definitions and relationships. Mix difficulties, avoid duplicate cards and keep each answer self-contained.

Content:
{content}

Respond with a JSON object of the form {"flashcards": [...]}.`

// QuizPrompt asks for exactly five multiple-choice questions.
const QuizPrompt = `You are an experienced {subject} teacher writing multiple-choice quiz questions for the lesson "{title}".

Write exactly 5 multiple-choice quiz questions based only on the study material below. For each question provide:
- "question": the question text
- "options": exactly 4 answer options
- "correct_answer": the index (0-3) of the correct option
- "explanation": why the correct option is right
- "difficulty": one of "easy", "medium" or "hard"

Make the wrong options plausible and test understanding rather than recall of wording.

Study material:
{content}

Respond with a JSON object of the form {"questions": [...]}.`

// QAPrompt answers a student question from their notes.
const QAPrompt = `You are a helpful study assistant. Answer the student's question using the study notes below.

Rules:
- Base the answer on the notes. If they do not contain the answer, say so and give the best general explanation you can.
- Use markdown formatting: short paragraphs, bullet points and **bold** for key terms.
- Start with a one or two sentence direct answer, then explain.
- Do not repeat the answer as a summary at the end.

Study notes:
{notes}

Question: {question}

Answer:`

func renderNotes(chunk string) string {
	return strings.NewReplacer("{chunk}", chunk).Replace(NotesPrompt)
}

func renderFlashcards(content string) string {
	return strings.NewReplacer("{content}", content).Replace(FlashcardPrompt)
}

func renderQuiz(content, subject, title string) string {
	return strings.NewReplacer(
		"{content}", content,
		"{subject}", subject,
		"{title}", title,
	).Replace(QuizPrompt)
}

func renderQA(notes, question string) string {
	return strings.NewReplacer(
		"{notes}", notes,
		"{question}", question,
	).Replace(QAPrompt)
}
