package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NoteDraft is a generated study note.
type NoteDraft struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Summary string `json:"summary"`
}

// QuizQuestion is a generated multiple-choice question.
type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation"`
}

// CardDraft is a generated flashcard.
type CardDraft struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

const notePrompt = `You are Newton, a study assistant. Turn the source material into a study note.
Respond with a JSON object: {"title": string, "content": string, "summary": string}.
"content" is well-structured markdown with headings, key terms in bold and bullet lists.
"summary" is at most three sentences. Write in the language of the source.`

const quizPrompt = `You are Newton, a study assistant. Write exactly %d multiple-choice questions
testing understanding of the source material. Respond with a JSON object:
{"questions": [{"question": string, "options": [4 strings], "answer_index": 0-3, "explanation": string}]}`

const flashcardPrompt = `You are Newton, a study assistant. Write exactly %d flashcards covering the
most important facts and concepts in the source material. Respond with a JSON object:
{"flashcards": [{"front": string, "back": string}]}. Keep each side short.`

// GenerateNote writes a study note from source text. titleHint, if set, is used as the title.
func (c *Client) GenerateNote(ctx context.Context, source, titleHint string) (*NoteDraft, error) {
	var draft NoteDraft
	if err := c.completeJSON(ctx, notePrompt, c.truncate(source), &draft); err != nil {
		return nil, fmt.Errorf("note generation failed: %w", err)
	}

	if titleHint != "" {
		draft.Title = titleHint
	}
	draft.Title = strings.TrimSpace(draft.Title)
	if draft.Title == "" {
		draft.Title = "Untitled note"
	}
	if strings.TrimSpace(draft.Content) == "" {
		return nil, errors.New("note generation returned empty content")
	}
	return &draft, nil
}

// GenerateQuiz writes n questions. Malformed questions are dropped.
func (c *Client) GenerateQuiz(ctx context.Context, source string, n int) ([]QuizQuestion, error) {
	if n <= 0 {
		return nil, nil
	}

	var out struct {
		Questions []QuizQuestion `json:"questions"`
	}
	if err := c.completeJSON(ctx, fmt.Sprintf(quizPrompt, n), c.truncate(source), &out); err != nil {
		return nil, fmt.Errorf("quiz generation failed: %w", err)
	}

	questions := make([]QuizQuestion, 0, len(out.Questions))
	for _, q := range out.Questions {
		if q.Question == "" || len(q.Options) < 2 || q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
			continue
		}
		questions = append(questions, q)
		if len(questions) == n {
			break
		}
	}
	if len(questions) == 0 {
		return nil, errors.New("quiz generation returned no usable questions")
	}
	return questions, nil
}

// GenerateFlashcards writes up to n cards. Empty cards are dropped.
func (c *Client) GenerateFlashcards(ctx context.Context, source string, n int) ([]CardDraft, error) {
	if n <= 0 {
		return nil, nil
	}

	var out struct {
		Flashcards []CardDraft `json:"flashcards"`
	}
	if err := c.completeJSON(ctx, fmt.Sprintf(flashcardPrompt, n), c.truncate(source), &out); err != nil {
		return nil, fmt.Errorf("flashcard generation failed: %w", err)
	}

	cards := make([]CardDraft, 0, len(out.Flashcards))
	for _, card := range out.Flashcards {
		card.Front = strings.TrimSpace(card.Front)
		card.Back = strings.TrimSpace(card.Back)
		if card.Front == "" || card.Back == "" {
			continue
		}
		cards = append(cards, card)
		if len(cards) == n {
			break
		}
	}
	return cards, nil
}
