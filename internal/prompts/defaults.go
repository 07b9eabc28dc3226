package prompts

var defaults = []Template{
	{
		Name:   NameStudentTip,
		System: "You are a supportive academic advisor helping students manage their workload. Be encouraging but realistic.",
		User: `A student has the following workload for the coming days:
{{range .Days}}- {{.Date.Format "2006-01-02"}}: {{.LoadScore}}% load ({{.DeadlinesCount}} deadlines, {{.RiskLevel}} risk)
{{end}}
Give the student short, practical advice:
1. Which days to start working on what.
2. How to split the preparation across the lighter days.
3. One concrete tip to reduce stress.

Keep it under 100 words and address the student directly.`,
	},
	{
		Name:   NameProfessorSuggestion,
		System: "You are an AI assistant helping professors optimize course scheduling. Be professional and data-driven.",
		User: `The course "{{.CourseName}}" has the following scheduling situation.

Days where the class average load is overloaded:
{{range .OverloadedDays}}- {{.Date.Format "2006-01-02"}}: {{.AverageLoad}}% average load
{{end}}
Upcoming deadlines in this course:
{{range .Deadlines}}- {{.DueDate.Format "2006-01-02"}}: {{.Title}} ({{.Type}}, difficulty {{.Difficulty}})
{{end}}
Detected deadline conflicts:
{{range .Conflicts}}- {{.Date.Format "2006-01-02"}}: {{.Count}} deadlines on the same day ({{.Severity}} severity)
{{end}}
Suggest concretely:
1. Which deadlines could be moved, and to where.
2. How to spread the load more evenly.

Keep it under 120 words.`,
	},
	{
		Name:   NameConflictWarning,
		System: "You are a supportive academic advisor helping students manage their workload. Be encouraging but realistic.",
		User: `On {{.Conflict.Date.Format "2006-01-02"}} there are {{.Conflict.Count}} deadlines due at once ({{.Conflict.Severity}} severity):
{{range .Conflict.Deadlines}}- {{.Title}} ({{.Type}}, difficulty {{.Difficulty}}) in {{.CourseName}}
{{end}}
Write a short warning for the student with a suggested order of attack.
Keep it under 80 words.`,
	},
}
