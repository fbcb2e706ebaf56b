package synthesize

import (
	"fmt"
	"strings"

	"newsloop/internal/capability"
)

const (
	bulletCount    = 3
	bulletMinWords = 18
	bulletMaxWords = 25
	bodyMinWords   = 220
	bodyMaxWords   = 280
	bodyParagraphs = 5
)

// Validate checks out against §4.6's structural invariants: exact bullet
// counts and word ranges, body word/paragraph ranges, and presence of both
// registers. It returns the first violation found, or nil if out is valid.
func Validate(out *capability.SynthesisOutput) error {
	if strings.TrimSpace(out.TitlePro) == "" {
		return fmt.Errorf("title_pro is empty")
	}
	if strings.TrimSpace(out.TitleSimple) == "" {
		return fmt.Errorf("title_simple is empty")
	}

	if err := validateBullets("bullets_pro", out.BulletsPro); err != nil {
		return err
	}
	if err := validateBullets("bullets_simple", out.BulletsSimple); err != nil {
		return err
	}

	if err := validateBody("body_pro", out.BodyPro); err != nil {
		return err
	}
	if err := validateBody("body_simple", out.BodySimple); err != nil {
		return err
	}

	return nil
}

func validateBullets(field string, bullets []string) error {
	if len(bullets) != bulletCount {
		return fmt.Errorf("%s: expected exactly %d bullets, got %d", field, bulletCount, len(bullets))
	}
	for i, b := range bullets {
		n := wordCount(b)
		if n < bulletMinWords || n > bulletMaxWords {
			return fmt.Errorf("%s[%d]: word count %d out of range [%d,%d]", field, i, n, bulletMinWords, bulletMaxWords)
		}
	}
	return nil
}

func validateBody(field, body string) error {
	n := wordCount(body)
	if n < bodyMinWords || n > bodyMaxWords {
		return fmt.Errorf("%s: word count %d out of range [%d,%d]", field, n, bodyMinWords, bodyMaxWords)
	}
	paragraphs := countParagraphs(body)
	if paragraphs != bodyParagraphs {
		return fmt.Errorf("%s: expected %d paragraphs, got %d", field, bodyParagraphs, paragraphs)
	}
	return nil
}

func countParagraphs(body string) int {
	parts := strings.Split(strings.TrimSpace(body), "\n\n")
	n := 0
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}
