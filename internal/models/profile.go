package models

type Link struct {
	LinkedIn  string `json:"linkedin,omitempty"`
	Portfolio string `json:"portfolio,omitempty"`
}

type PersonalInformation struct {
	FullName string `json:"full_name"`
	JobTitle string `json:"job_title"`
	Location string `json:"location"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Links    Link   `json:"links"`
}

// FAQEntry is a curated question/answer pair the user has pre-answered.
// The answer oracle prefers these over generated text and tags the
// resulting Answer with the entry's provenance ref.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Ref      string `json:"ref,omitempty"`
}

type Profile struct {
	PersonalInformation PersonalInformation `json:"personal_information"`
	Summary             string              `json:"summary"`
	YearsOfExperience   int                 `json:"years_of_experience"`
	WorkAuthorization   string              `json:"work_authorization"`
	FAQ                 []FAQEntry          `json:"faq"`
}
