package repository

import "github.com/YSAI1021/psychiatry-ai-agent-sub000/internal/domain"

// DefaultPsychiatrists is the reference list loaded into an empty database.
var DefaultPsychiatrists = []domain.Psychiatrist{
	{
		Name: "Dr. Sarah Chen", Gender: "female", Email: "s.chen@northside-psych.example",
		Specialties: []string{"depression", "anxiety", "sleep"}, Tags: []string{"insomnia", "low mood", "panic", "worry"},
		Location: "Boston, MA", Insurance: []string{"Aetna", "Blue Cross Blue Shield", "Cigna"}, InNetwork: true,
		Rating: 4.8, YearsExperience: 12, Availability: "Weekday mornings", TherapyStyles: []string{"cbt", "medication management"},
	},
	{
		Name: "Dr. Michael Rivera", Gender: "male", Email: "m.rivera@harborhealth.example",
		Specialties: []string{"psychosis", "severe mental illness", "bipolar disorder"}, Tags: []string{"psychosis", "hallucinations", "mania"},
		Location: "Cambridge, MA", Insurance: []string{"Medicaid", "Aetna", "UnitedHealthcare"}, InNetwork: true,
		Rating: 4.6, YearsExperience: 18, Availability: "Tuesday and Thursday afternoons", TherapyStyles: []string{"medication management"},
	},
	{
		Name: "Dr. Priya Patel", Gender: "female", Email: "ppatel@mindwell.example",
		Specialties: []string{"trauma", "anxiety", "depression"}, Tags: []string{"ptsd", "flashbacks", "nightmares", "panic"},
		Location: "Somerville, MA", Insurance: []string{"Blue Cross Blue Shield", "Harvard Pilgrim"}, InNetwork: false,
		Rating: 4.9, YearsExperience: 9, Availability: "Evenings", TherapyStyles: []string{"emdr", "psychodynamic", "cbt"},
	},
	{
		Name: "Dr. James O'Connor", Gender: "male", Email: "joconnor@recoverypoint.example",
		Specialties: []string{"substance use", "addiction", "depression"}, Tags: []string{"alcohol", "smoking", "cannabis", "cravings"},
		Location: "Quincy, MA", Insurance: []string{"Cigna", "Tufts Health Plan", "Medicaid"}, InNetwork: true,
		Rating: 4.4, YearsExperience: 22, Availability: "Weekdays", TherapyStyles: []string{"motivational interviewing", "medication management"},
	},
	{
		Name: "Dr. Amara Okafor", Gender: "female", Email: "a.okafor@lakesidebh.example",
		Specialties: []string{"adhd", "anxiety", "concentration"}, Tags: []string{"focus", "restlessness", "worry"},
		Location: "Brookline, MA", Insurance: []string{"UnitedHealthcare", "Harvard Pilgrim"}, InNetwork: true,
		Rating: 4.7, YearsExperience: 7, Availability: "Monday, Wednesday, Friday", TherapyStyles: []string{"cbt", "coaching"},
	},
	{
		Name: "Dr. Daniel Kim", Gender: "male", Email: "dkim@telepsych.example",
		Specialties: []string{"depression", "psychosis", "severe mental illness"}, Tags: []string{"low mood", "hallucinations", "fatigue"},
		Location: "Telehealth", Insurance: []string{"Aetna", "Cigna", "Blue Cross Blue Shield"}, InNetwork: false,
		Rating: 4.5, YearsExperience: 15, Availability: "Flexible, telehealth only", TherapyStyles: []string{"medication management", "supportive"},
	},
}
