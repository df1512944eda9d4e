package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/example/unispaces/internal/persistence"
)

type seedBook struct {
	title       string
	author      string
	url         string
	cover       string
	description string
}

type seedSubject struct {
	name  string
	books []seedBook
}

// catalogSeed is the OpenStax starter catalog applied on first startup.
var catalogSeed = []seedSubject{
	{
		name: "Mathematics",
		books: []seedBook{
			{
				title:       "Calculus Volume 1",
				author:      `Edwin "Jed" Herman, Gilbert Strang`,
				url:         "https://openstax.org/details/books/calculus-volume-1",
				cover:       "https://assets.openstax.org/oscms-prodcms/media/documents/Calculus_Volume_1_-_Web_Version_Cover.png",
				description: "Calculus Volume 1 is designed for the typical two- or three-semester general calculus course, incorporating innovative features to enhance student learning.",
			},
			{
				title:       "Algebra and Trigonometry",
				author:      "Jay Abramson",
				url:         "https://openstax.org/details/books/algebra-and-trigonometry-2e",
				cover:       "https://assets.openstax.org/oscms-prodcms/media/documents/Algebra_and_Trigonometry_2e_-_Web_Version_Cover.png",
				description: "Algebra and Trigonometry 2e provides a comprehensive exploration of algebraic principles and meets scope and sequence requirements for a typical introductory algebra and trigonometry course.",
			},
		},
	},
	{
		name: "Physics",
		books: []seedBook{
			{
				title:       "University Physics Volume 1",
				author:      "Samuel J. Ling, Jeff Sanny, William Moebs",
				url:         "https://openstax.org/details/books/university-physics-volume-1",
				cover:       "https://assets.openstax.org/oscms-prodcms/media/documents/University_Physics_Volume_1_-_Web_Version_Cover.png",
				description: "University Physics is a three-volume collection that meets the scope and sequence requirements for two- and three-semester calculus-based physics courses.",
			},
		},
	},
	{
		name: "Computer Science",
		books: []seedBook{
			{
				title:       "Introduction to Python Programming",
				author:      "OpenStax",
				url:         "https://openstax.org/details/books/introduction-python-programming",
				cover:       "https://assets.openstax.org/oscms-prodcms/media/documents/Introduction_to_Python_Programming_-_Web_Version_Cover.png",
				description: "Introduction to Python Programming is designed for students with no prior programming experience.",
			},
		},
	},
	{
		name: "Psychology",
		books: []seedBook{
			{
				title:       "Psychology 2e",
				author:      "Rose M. Spielman, William J. Jenkins, Marilyn D. Lovett",
				url:         "https://openstax.org/details/books/psychology-2e",
				cover:       "https://assets.openstax.org/oscms-prodcms/media/documents/Psychology_2e_-_Web_Version_Cover.png",
				description: "Psychology 2e is designed to meet scope and sequence requirements for the single-semester introduction to psychology course.",
			},
		},
	},
	{
		name: "History",
		books: []seedBook{
			{
				title:       "U.S. History",
				author:      "P. Scott Corbett, Volker Janssen, John M. Lund",
				url:         "https://openstax.org/details/books/us-history",
				cover:       "https://assets.openstax.org/oscms-prodcms/media/documents/US_History_-_Web_Version_Cover.png",
				description: "U.S. History covers the breadth of the chronological history of the United States and also provides the necessary depth to ensure the course is manageable for instructors and students alike.",
			},
		},
	},
	{
		name: "Biology",
		books: []seedBook{
			{
				title:       "Biology 2e",
				author:      "Mary Ann Clark, Matthew Douglas, Jung Choi",
				url:         "https://openstax.org/details/books/biology-2e",
				cover:       "https://assets.openstax.org/oscms-prodcms/media/documents/Biology_2e_-_Web_Version_Cover.png",
				description: "Biology 2e is designed to cover the scope and sequence requirements of a typical two-semester biology course for science majors.",
			},
			{
				title:       "Concepts of Biology",
				author:      "Samantha Fowler, Rebecca Roush, James Wise",
				url:         "https://openstax.org/details/books/concepts-biology",
				cover:       "https://assets.openstax.org/oscms-prodcms/media/documents/Concepts_of_Biology_-_Web_Version_Cover.png",
				description: "Concepts of Biology is designed for the typical introductory biology course for nonmajors, covering standard scope and sequence requirements.",
			},
		},
	},
	{
		name: "Chemistry",
		books: []seedBook{
			{
				title:       "Chemistry 2e",
				author:      "Paul Flowers, Klaus Theopold, Richard Langley",
				url:         "https://openstax.org/details/books/chemistry-2e",
				cover:       "https://assets.openstax.org/oscms-prodcms/media/documents/Chemistry_2e_-_Web_Version_Cover.png",
				description: "Chemistry 2e is designed to meet the scope and sequence requirements of the two-semester general chemistry course.",
			},
		},
	},
	{
		name: "Economics",
		books: []seedBook{
			{
				title:       "Principles of Economics 3e",
				author:      "David Shapiro, Daniel MacDonald, Steven A. Greenlaw",
				url:         "https://openstax.org/details/books/principles-economics-3e",
				cover:       "https://assets.openstax.org/oscms-prodcms/media/documents/Principles_of_Economics_3e_-_Web_Version_Cover.png",
				description: "Principles of Economics 3e covers the scope and sequence of most introductory economics courses.",
			},
		},
	},
	{
		name: "Business",
		books: []seedBook{
			{
				title:       "Introduction to Business",
				author:      "Lawrence J. Gitman, Carl McDaniel, Amit Shah",
				url:         "https://openstax.org/details/books/introduction-business",
				cover:       "https://assets.openstax.org/oscms-prodcms/media/documents/Introduction_to_Business_-_Web_Version_Cover.png",
				description: "Introduction to Business covers the scope and sequence of most introductory business courses.",
			},
		},
	},
}

// SeedCatalog inserts the OpenStax starter catalog, skipping subjects and
// titles that already exist. Safe to run on every startup.
func (r *LibraryRepository) SeedCatalog(ctx context.Context, idGenerator func() string, now func() time.Time) error {
	subjects, err := r.ListSubjects(ctx)
	if err != nil {
		return err
	}
	subjectIDs := make(map[string]string, len(subjects))
	for _, subject := range subjects {
		subjectIDs[subject.Name] = subject.ID
	}

	existingTitles, err := r.listTextbookTitles(ctx)
	if err != nil {
		return err
	}

	for _, group := range catalogSeed {
		subjectID, ok := subjectIDs[group.name]
		if !ok {
			subjectID = idGenerator()
			subject := persistence.Subject{
				ID:   subjectID,
				Name: group.name,
				Slug: strings.ToLower(strings.ReplaceAll(group.name, " ", "-")),
			}
			if err := r.CreateSubject(ctx, subject); err != nil {
				return err
			}
		}

		for _, book := range group.books {
			if existingTitles[book.title] {
				continue
			}
			description := book.description
			cover := book.cover
			textbook := persistence.Textbook{
				ID:            idGenerator(),
				Title:         book.title,
				Author:        book.author,
				SubjectID:     subjectID,
				Description:   &description,
				CoverImageURL: &cover,
				OpenAccessURL: book.url,
				Provider:      "OpenStax",
				CreatedAt:     now(),
			}
			if err := r.CreateTextbook(ctx, textbook); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *LibraryRepository) listTextbookTitles(ctx context.Context) (map[string]bool, error) {
	rows, err := r.store.db.QueryContext(ctx, "SELECT title FROM textbooks")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	titles := make(map[string]bool)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, mapError(err)
		}
		titles[title] = true
	}
	return titles, rows.Err()
}
