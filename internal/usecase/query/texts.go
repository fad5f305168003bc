package query

import "fmt"

// ApologyAnswer is the only failure visible to callers of Answer.
const ApologyAnswer = "Désolé, je rencontre des difficultés techniques. " +
	"Veuillez réessayer dans quelques instants. 🙏"

const greetingTemplate = `Bonjour %s! 👋

Je suis l'assistant ECOMplus, votre guide shopping personnel! 🛍️

Je peux vous aider à:
🔍 Rechercher des produits
💰 Comparer les prix
📦 Vérifier la disponibilité
❓ Répondre à vos questions

Comment puis-je vous aider aujourd'hui?
`

const helpText = `🤖 **Guide d'utilisation du Chatbot ECOMplus**

Voici ce que je peux faire pour vous:

📱 **Commandes disponibles:**
• /start - Démarrer une conversation
• /help - Afficher cette aide
• /products - Voir les produits populaires
• /search [terme] - Rechercher un produit

💬 **Vous pouvez aussi me poser des questions comme:**
• "Quels sont vos smartphones disponibles?"
• "Avez-vous des promotions?"
• "Quel est le prix du [produit]?"
• "Recommandez-moi un cadeau"

N'hésitez pas à me parler naturellement! 😊
`

// Greeting returns the welcome text addressed to name (may be empty).
func Greeting(name string) string {
	return fmt.Sprintf(greetingTemplate, name)
}

// Help returns the usage text.
func Help() string {
	return helpText
}
