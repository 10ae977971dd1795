package session

// Greeting opens every conversation. It is shown to the user but never sent
// to the provider.
const Greeting = "Hello! I'm your RBC banking assistant. How can I help you with your banking questions today?"

// FallbackReply is recorded as the assistant turn when a completion fails.
const FallbackReply = "I'm having trouble connecting to my AI service right now. Please try again later or ask another question."

// ErrorBanner is the dismissible notice shown next to FallbackReply.
const ErrorBanner = "Sorry, there was an error connecting to the AI service. Please try again."

// Suggestions are offered while only the greeting is on screen.
var Suggestions = []string{
	"What are RBC's mortgage rates?",
	"How do I protect myself from banking fraud?",
	"What's the difference between a TFSA and an RRSP?",
	"How do I set up direct deposit?",
}

// HelpIntro, HelpCan and HelpCannot fill the help popup.
const HelpIntro = "The RBC Virtual Assistant is designed to help you with banking-related questions and information."

var HelpCan = []string{
	"Answer general banking questions",
	"Provide information about RBC services",
	"Explain banking terms and concepts",
	"Guide you through common banking procedures",
}

var HelpCannot = []string{
	"Access your personal account information",
	"Make transactions on your behalf",
	"Provide personalized financial advice",
	"Handle sensitive personal information",
}
