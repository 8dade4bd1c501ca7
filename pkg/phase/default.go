package phase

// defaultRanges is the canonical partition:
// screening 0-5, triggers 6-11, cognition 12-19, behavior 20-27,
// resources 28-35, action 36+.
var defaultRanges = []Range{
	{
		Name:        Screening,
		Start:       0,
		End:         5,
		Description: "СКРИНИНГ И ВЫЯВЛЕНИЕ ПРОБЛЕМЫ",
		Instructions: "- Определи основную эмоцию: тревога, грусть, злость, стыд?\n" +
			"- Выясни, когда это началось и как сильно влияет на жизнь",
	},
	{
		Name:        Triggers,
		Start:       6,
		End:         11,
		Insight:     true,
		Description: "АНАЛИЗ ТРИГГЕРОВ",
		Instructions: "- Что запускает это состояние? (люди, места, ситуации)\n" +
			"- Есть ли паттерн? (время суток, определённые дни)",
	},
	{
		Name:        Cognition,
		Start:       12,
		End:         19,
		Insight:     true,
		Description: "КОГНИТИВНАЯ ЧАСТЬ",
		Instructions: "- Какие автоматические мысли возникают?\n" +
			"- Есть ли катастрофизация или чёрно-белое мышление?",
	},
	{
		Name:        Behavior,
		Start:       20,
		End:         27,
		Insight:     true,
		Description: "ПОВЕДЕНЧЕСКИЕ ПАТТЕРНЫ",
		Instructions: "- Как ты реагируешь на триггер? (избегание, борьба, замирание)\n" +
			"- Что помогает или не помогает справляться?",
	},
	{
		Name:        Resources,
		Start:       28,
		End:         35,
		Insight:     true,
		Description: "РЕСУРСЫ И ПРАКТИКИ",
		Instructions: "- Есть ли поддержка, хобби, техники релаксации?\n" +
			"- Готов ли ты пробовать новое?",
	},
	{
		Name:        Action,
		Start:       36,
		End:         -1,
		Insight:     true,
		Description: "ЗАВЕРШЕНИЕ И ПЛАН",
		Instructions: "- Вопросы-утверждения для закрепления инсайтов\n" +
			"- Конкретные действия на ближайшие дни",
	},
}

// DefaultTable returns the canonical phase table.
func DefaultTable() *Table {
	t, err := NewTable(defaultRanges)
	if err != nil {
		panic("phase: invalid default table: " + err.Error())
	}
	return t
}
