package bot

import "fmt"

// Callback data carried by inline buttons.
const (
	CallbackStartChat = "start_chat"
	CallbackResetChat = "reset_chat"
)

// OpeningPrompt seeds the assistant's first turn when a dialogue begins.
const OpeningPrompt = "Пользователь вернулся после подписки. Начни диалог, представься и спроси имя."

const WelcomeText = "🎉 Добро пожаловать в Synaplink AI!\n\n" +
	"Мы — инновационная компания, создающая и внедряющая передовые технологические решения для вашего бизнеса.\n\n" +
	"📎 В знак благодарности за обращение — дарим вам чек-лист:\n" +
	"«5 точек роста с ИИ» — коротко и по делу о том, как искусственный интеллект может дать вашему бизнесу суперсилу.\n\n" +
	"🤖 Наш ИИ-ассистент Сани уже готов к диалогу: он подскажет, поможет и подберёт оптимальное решение под ваши задачи.\n\n" +
	"👇 Нажмите кнопку ниже, чтобы начать общение."

const BeginDialogueButton = "✅ Начать диалог"

const (
	LogoCaption      = "🏢 Synaplink"
	ChecklistCaption = "Чек-лист «5 точек роста с ИИ»"
)

const DialogueStartedPrefix = "👋 Спасибо, что подписались на наш канал! 🎉\n\n"

const DialogueStartedFallback = DialogueStartedPrefix +
	"Я готов помочь вам с любыми вопросами о наших услугах, " +
	"технологиях и решениях. Представьтесь пожалуйста! И расскажите что Вас интересует."

const RestartPrompt = "Пожалуйста, начните с команды /start для начала работы с ботом."

const ResetText = "🔄 Разговор сброшен!\n\nИспользуйте /start для начала нового диалога."

const ProcessingApology = "Извините, произошла ошибка. Попробуйте позже или используйте /reset для сброса."

// applicationAlert wraps an assistant reply for the working chat.
func applicationAlert(userID int64, reply string) string {
	return fmt.Sprintf("🚨 НОВАЯ ЗАЯВКА ОТ ПОЛЬЗОВАТЕЛЯ %d\n\n%s", userID, reply)
}
