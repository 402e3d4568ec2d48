package commtest

// QuestionPool is the fixed pool the test samples from. Ten questions
// covering everyday topics a learner can answer without preparation.
var QuestionPool = []string{
	"Can you tell me about your favorite hobby?",
	"Describe your last holiday.",
	"What would you do if you could live anywhere in the world?",
	"Explain how to make a cup of tea.",
	"What are your plans for the weekend?",
	"Tell me about your favorite book or movie.",
	"What do you like to do in your free time?",
	"Describe your typical day.",
	"What is something new you learned recently?",
	"If you could meet any historical figure, who would it be and why?",
}

// QuestionsPerTest is how many questions one test run asks.
const QuestionsPerTest = 10
