/*

Package ftsload loads the yearly spreadsheet datasets of the EU Financial
Transparency System into a PostgreSQL table.

A run enumerates the dataset years (2007 to the current year), downloads
each year's workbook, normalizes every row against the fixed column
catalog, and bulk-loads the results in 5000-row batches. A failed download
skips that year; a bad row skips that row; schema and batch-commit
failures abort the run.

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		// ...
	}

	pipeline, err := ftsload.New(db,
		ftsload.WithPrettyLogging(),
		ftsload.WithNotifier(&ftsload.SlackNotifier{
			Token:   os.Getenv("SLACK_TOKEN"),
			Channel: os.Getenv("SLACK_CHANNEL"),
		}),
	)
	if err != nil {
		// ...
	}

	stats, err := pipeline.Run(ctx)

*/
package ftsload
