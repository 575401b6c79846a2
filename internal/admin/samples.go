package admin

import (
	"time"

	"github.com/redmonkez12/viziopath-api/internal/account"
	"github.com/redmonkez12/viziopath-api/internal/profile"
)

type sample struct {
	user    NewUser
	profile *profile.Update
}

func date(year int, month time.Month) *time.Time {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return &t
}

func ptr[T any](v T) *T {
	return &v
}

// sampleData is the development fixture set. The admin has no profile.
func sampleData() []sample {
	return []sample{
		{
			user: NewUser{Name: "Admin User", Email: "admin@viziopath.info", Password: "admin123", Role: account.RoleAdmin},
		},
		{
			user: NewUser{Name: "John Doe", Email: "john@example.com", Password: "password123", Role: account.RoleUser},
			profile: &profile.Update{
				Bio:      ptr("Experienced software engineer with passion for web development"),
				Location: ptr("San Francisco, CA"),
				Company:  ptr("Tech Corp"),
				JobTitle: ptr("Senior Software Engineer"),
				Skills:   ptr([]string{"JavaScript", "Node.js", "React", "MongoDB", "AWS"}),
				Education: ptr([]profile.Education{{
					Institution: "Stanford University",
					Degree:      "Bachelor of Science",
					Field:       "Computer Science",
					StartDate:   date(2015, time.September),
					EndDate:     date(2019, time.June),
					Description: "Focused on software engineering and web technologies",
				}}),
				Experience: ptr([]profile.Experience{{
					Company:     "Tech Corp",
					Position:    "Senior Software Engineer",
					StartDate:   date(2019, time.July),
					Current:     true,
					Description: "Leading development of scalable web applications",
				}}),
				Social: &profile.Social{
					LinkedIn: "https://linkedin.com/in/johndoe",
					GitHub:   "https://github.com/johndoe",
				},
			},
		},
		{
			user: NewUser{Name: "Jane Smith", Email: "jane@example.com", Password: "password123", Role: account.RoleUser},
			profile: &profile.Update{
				Bio:      ptr("UX/UI designer creating beautiful and functional user experiences"),
				Location: ptr("New York, NY"),
				Company:  ptr("Design Studio"),
				JobTitle: ptr("Lead UX Designer"),
				Skills:   ptr([]string{"UI/UX Design", "Figma", "Adobe Creative Suite", "User Research", "Prototyping"}),
				Education: ptr([]profile.Education{{
					Institution: "Parsons School of Design",
					Degree:      "Bachelor of Fine Arts",
					Field:       "Design and Technology",
					StartDate:   date(2016, time.September),
					EndDate:     date(2020, time.June),
					Description: "Specialized in digital design and user experience",
				}}),
				Experience: ptr([]profile.Experience{{
					Company:     "Design Studio",
					Position:    "Lead UX Designer",
					StartDate:   date(2020, time.July),
					Current:     true,
					Description: "Leading design team and creating user-centered solutions",
				}}),
				Social: &profile.Social{LinkedIn: "https://linkedin.com/in/janesmith"},
			},
		},
		{
			user: NewUser{Name: "Bob Johnson", Email: "bob@example.com", Password: "password123", Role: account.RoleUser},
			profile: &profile.Update{
				Bio:      ptr("Data scientist passionate about machine learning and analytics"),
				Location: ptr("Seattle, WA"),
				Company:  ptr("Data Analytics Inc"),
				JobTitle: ptr("Senior Data Scientist"),
				Skills:   ptr([]string{"Python", "Machine Learning", "Data Analysis", "SQL", "TensorFlow"}),
				Education: ptr([]profile.Education{{
					Institution: "University of Washington",
					Degree:      "Master of Science",
					Field:       "Data Science",
					StartDate:   date(2017, time.September),
					EndDate:     date(2019, time.June),
					Description: "Focused on machine learning algorithms and data analysis",
				}}),
				Experience: ptr([]profile.Experience{{
					Company:     "Data Analytics Inc",
					Position:    "Senior Data Scientist",
					StartDate:   date(2019, time.July),
					Current:     true,
					Description: "Developing ML models and providing data-driven insights",
				}}),
				Social: &profile.Social{
					LinkedIn: "https://linkedin.com/in/bobjohnson",
					GitHub:   "https://github.com/bobjohnson",
				},
			},
		},
	}
}
