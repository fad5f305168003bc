package generation

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/catalograg/internal/domain"
)

const systemPromptTemplate = `Tu es un assistant e-commerce intelligent et amical pour la plateforme ECOMplus.
Tu aides les clients à trouver des produits, répondre à leurs questions sur les prix,
la disponibilité et les caractéristiques des produits.

Instructions:
- Réponds toujours en français de manière naturelle et professionnelle
- Utilise les informations des produits fournis dans le contexte
- Si tu ne trouves pas l'information, dis-le poliment
- Suggère des produits similaires quand c'est pertinent
- Sois concis mais informatif
- Utilise des emojis pour rendre la conversation plus conviviale

Contexte des produits disponibles:
%s
`

// NotFoundAnswer is returned by the fallback when retrieval found nothing.
const NotFoundAnswer = "Je n'ai pas trouvé de produits correspondant à votre recherche. " +
	"Essayez avec d'autres mots-clés ou consultez notre catalogue complet. 📦"

const foundAnswerTemplate = `Voici les produits que j'ai trouvés pour votre recherche:

%s

N'hésitez pas à me demander plus de détails sur un produit! 😊
`

// SystemPrompt interpolates the assembled context into the instruction template.
func SystemPrompt(productContext string) string {
	return fmt.Sprintf(systemPromptTemplate, productContext)
}

// Fallback builds the deterministic answer from the assembled context.
func Fallback(productContext string) string {
	if isNoMatch(productContext) {
		return NotFoundAnswer
	}
	return fmt.Sprintf(foundAnswerTemplate, productContext)
}

func isNoMatch(productContext string) bool {
	trimmed := strings.TrimSpace(productContext)
	return trimmed == "" || trimmed == domain.NoMatchingProducts
}
