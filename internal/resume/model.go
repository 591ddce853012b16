package resume

import "strings"

// PlaceholderName marks a record produced without a usable extraction.
const PlaceholderName = "Please edit manually"

// Record is the canonical structured résumé. Every field is optional except
// the three core lists, which are always emitted so callers can iterate them.
type Record struct {
	Name           string `json:"name,omitempty"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Location       string `json:"location,omitempty"`
	LinkedIn       string `json:"linkedin,omitempty"`
	GitHub         string `json:"github,omitempty"`
	Twitter        string `json:"twitter,omitempty"`
	Instagram      string `json:"instagram,omitempty"`
	Facebook       string `json:"facebook,omitempty"`
	Devpost        string `json:"devpost,omitempty"`
	Scholar        string `json:"scholar,omitempty"`
	YouTube        string `json:"youtube,omitempty"`
	ProfilePicture string `json:"profile_picture,omitempty"`
	Tagline        string `json:"tagline,omitempty"`
	About          string `json:"about,omitempty"`
	ParsingError   string `json:"parsing_error,omitempty"`

	Skills         []string         `json:"skills"`
	WorkExperience []WorkExperience `json:"work_experience"`
	Education      []Education      `json:"education"`
	Projects       []Project        `json:"projects,omitempty"`
	Publications   []Publication    `json:"publications,omitempty"`
	Patents        []Patent         `json:"patents,omitempty"`
	Awards         []Award          `json:"awards,omitempty"`
	TestScores     []TestScore      `json:"test_scores,omitempty"`
	Certifications []Certification  `json:"certifications,omitempty"`
	Languages      []string         `json:"languages,omitempty"`
	Courses        []string         `json:"courses,omitempty"`
}

type WorkExperience struct {
	Company     string   `json:"company,omitempty"`
	Title       string   `json:"title,omitempty"`
	Dates       string   `json:"dates,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	LogoURL     string   `json:"logo_url,omitempty"`
	MediaURL    string   `json:"media_url,omitempty"`
}

type Education struct {
	Institution string `json:"institution,omitempty"`
	Degree      string `json:"degree,omitempty"`
	Dates       string `json:"dates,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	GPA         string `json:"gpa,omitempty"`
	Activities  string `json:"activities,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
}

type Project struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Links       []string `json:"links,omitempty"`
	MediaURL    string   `json:"media_url,omitempty"`
}

type Publication struct {
	Name    string `json:"name,omitempty"`
	Journal string `json:"journal,omitempty"`
	Year    string `json:"year,omitempty"`
	Authors string `json:"authors,omitempty"`
	Link    string `json:"link,omitempty"`
}

type Patent struct {
	Name      string `json:"name,omitempty"`
	Inventors string `json:"inventors,omitempty"`
	Number    string `json:"number,omitempty"`
	Link      string `json:"link,omitempty"`
}

type Award struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type TestScore struct {
	TestName string `json:"test_name"`
	Score    string `json:"score"`
}

type Certification struct {
	Name       string `json:"name"`
	DateIssued string `json:"date_issued"`
	Link       string `json:"link"`
}

// Placeholder builds the degraded record returned when extraction gives up.
func Placeholder(msg string) Record {
	return Record{
		Name:           PlaceholderName,
		Skills:         []string{},
		WorkExperience: []WorkExperience{},
		Education:      []Education{},
		ParsingError:   msg,
	}
}

// IsPlaceholder reports whether r came from Placeholder.
func (r Record) IsPlaceholder() bool {
	return r.Name == PlaceholderName && r.ParsingError != ""
}

// Companies returns employer names indexed like WorkExperience.
func (r Record) Companies() []string {
	out := make([]string, len(r.WorkExperience))
	for i, w := range r.WorkExperience {
		out[i] = strings.TrimSpace(w.Company)
	}
	return out
}

// Institutions returns school names indexed like Education.
func (r Record) Institutions() []string {
	out := make([]string, len(r.Education))
	for i, e := range r.Education {
		out[i] = strings.TrimSpace(e.Institution)
	}
	return out
}

// Clone returns a deep copy so enrichment can merge without touching the input.
func (r Record) Clone() Record {
	out := r
	out.Skills = cloneStrings(r.Skills)
	out.Languages = cloneStrings(r.Languages)
	out.Courses = cloneStrings(r.Courses)
	if r.WorkExperience != nil {
		out.WorkExperience = make([]WorkExperience, len(r.WorkExperience))
		for i, w := range r.WorkExperience {
			w.Tags = cloneStrings(w.Tags)
			out.WorkExperience[i] = w
		}
	}
	if r.Education != nil {
		out.Education = append([]Education{}, r.Education...)
	}
	if r.Projects != nil {
		out.Projects = make([]Project, len(r.Projects))
		for i, p := range r.Projects {
			p.Tags = cloneStrings(p.Tags)
			p.Links = cloneStrings(p.Links)
			out.Projects[i] = p
		}
	}
	if r.Publications != nil {
		out.Publications = append([]Publication{}, r.Publications...)
	}
	if r.Patents != nil {
		out.Patents = append([]Patent{}, r.Patents...)
	}
	if r.Awards != nil {
		out.Awards = append([]Award{}, r.Awards...)
	}
	if r.TestScores != nil {
		out.TestScores = append([]TestScore{}, r.TestScores...)
	}
	if r.Certifications != nil {
		out.Certifications = append([]Certification{}, r.Certifications...)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string{}, in...)
}

// ensureCoreLists keeps skills, work_experience and education non-nil.
func (r *Record) ensureCoreLists() {
	if r.Skills == nil {
		r.Skills = []string{}
	}
	if r.WorkExperience == nil {
		r.WorkExperience = []WorkExperience{}
	}
	if r.Education == nil {
		r.Education = []Education{}
	}
}
