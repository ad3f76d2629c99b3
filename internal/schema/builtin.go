/*-------------------------------------------------------------------------
 *
 * pgEdge Natural Language Agent
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package schema

// Curated schemas with hand-written column descriptions. These carry far
// more retrieval signal than PRAGMA output, so they are preferred over live
// introspection when the data source matches one of the known domains.

// RetailCatalog returns the curated retail schema. Relationships are
// inferred from the <table>_id naming convention.
func RetailCatalog() *Catalog {
	tables := []TableSchema{
		{
			Name: "categories",
			Columns: []ColumnSchema{
				{Name: "category_id", Type: "INTEGER", Description: "A unique identifier for each product category. Primary key for the categories table.", PrimaryKey: true},
				{Name: "category_name", Type: "TEXT", Description: "The name of the category (e.g., 'Electronics', 'Clothing')."},
				{Name: "description", Type: "TEXT", Description: "A brief explanation of what the category includes or represents."},
				{Name: "parent_category_id", Type: "REAL", Description: "The ID of the parent category if this is a subcategory (e.g., 'Laptops' under 'Electronics'). Can be null if it's a top-level category."},
			},
		},
		{
			Name: "products",
			Columns: []ColumnSchema{
				{Name: "product_id", Type: "INTEGER", Description: "A unique identifier for each product. Primary key for the products table.", PrimaryKey: true},
				{Name: "product_name", Type: "TEXT", Description: "The name of the product (e.g., 'Wireless Mouse', 'T-shirt')."},
				{Name: "category_id", Type: "INTEGER", Description: "The ID of the category this product belongs to, linking to the categories table."},
				{Name: "price", Type: "REAL", Description: "The selling price of the product in the local currency (e.g., 29.99)."},
				{Name: "cost", Type: "REAL", Description: "The cost to the business to acquire or produce the product (e.g., 15.50)."},
				{Name: "stock_quantity", Type: "INTEGER", Description: "The number of units currently available in inventory."},
				{Name: "description", Type: "TEXT", Description: "A detailed description of the product (e.g., features, materials, or usage)."},
				{Name: "weight_kg", Type: "REAL", Description: "The weight of the product in kilograms (e.g., 0.25 for a lightweight item)."},
				{Name: "dimensions_cm", Type: "TEXT", Description: "The dimensions of the product in centimeters, typically in 'L x W x H' format (e.g., '10 x 5 x 2')."},
				{Name: "is_active", Type: "INTEGER", Description: "A flag indicating if the product is currently available for sale (1 = active, 0 = inactive)."},
			},
		},
		{
			Name: "customers",
			Columns: []ColumnSchema{
				{Name: "customer_id", Type: "INTEGER", Description: "A unique identifier for each customer. Primary key for the customers table.", PrimaryKey: true},
				{Name: "first_name", Type: "TEXT", Description: "The customer's first name (e.g., 'John')."},
				{Name: "last_name", Type: "TEXT", Description: "The customer's last name (e.g., 'Smith')."},
				{Name: "email", Type: "TEXT", Description: "The customer's email address (e.g., 'john.smith@example.com')."},
				{Name: "phone", Type: "TEXT", Description: "The customer's phone number (e.g., '+1-555-123-4567')."},
				{Name: "address", Type: "TEXT", Description: "The street address of the customer (e.g., '123 Main St')."},
				{Name: "city", Type: "TEXT", Description: "The city where the customer resides (e.g., 'New York')."},
				{Name: "state", Type: "TEXT", Description: "The state or region of the customer's address (e.g., 'NY')."},
				{Name: "zip_code", Type: "INTEGER", Description: "The postal code for the customer's address (e.g., 10001)."},
				{Name: "registration_date", Type: "TEXT", Description: "The date the customer registered, stored as text (e.g., '2023-01-15')."},
				{Name: "customer_segment", Type: "TEXT", Description: "A classification of the customer (e.g., 'VIP', 'Regular', 'New')."},
			},
		},
		{
			Name: "orders",
			Columns: []ColumnSchema{
				{Name: "order_id", Type: "INTEGER", Description: "A unique identifier for each order. Primary key for the orders table.", PrimaryKey: true},
				{Name: "customer_id", Type: "INTEGER", Description: "The ID of the customer who placed the order, linking to the customers table."},
				{Name: "order_date", Type: "TEXT", Description: "The date and time the order was placed, stored as text (e.g., '2023-03-08 14:30:00')."},
				{Name: "status", Type: "TEXT", Description: "The current status of the order (e.g., 'Pending', 'Shipped', 'Delivered', 'Cancelled')."},
				{Name: "payment_method", Type: "TEXT", Description: "The method used to pay for the order (e.g., 'Credit Card', 'PayPal', 'Cash on Delivery')."},
				{Name: "shipping_address", Type: "TEXT", Description: "The street address where the order will be shipped (e.g., '456 Oak St')."},
				{Name: "shipping_city", Type: "TEXT", Description: "The city for the shipping address (e.g., 'Boston')."},
				{Name: "shipping_state", Type: "TEXT", Description: "The state or region for the shipping address (e.g., 'MA')."},
				{Name: "shipping_zip", Type: "INTEGER", Description: "The postal code for the shipping address (e.g., 02108)."},
				{Name: "shipping_cost", Type: "REAL", Description: "The cost of shipping the order in the local currency (e.g., 5.99)."},
			},
		},
		{
			Name: "order_items",
			Columns: []ColumnSchema{
				{Name: "order_item_id", Type: "INTEGER", Description: "A unique identifier for each item within an order. Primary key for the order_items table.", PrimaryKey: true},
				{Name: "order_id", Type: "INTEGER", Description: "The ID of the order this item belongs to, linking to the orders table."},
				{Name: "product_id", Type: "INTEGER", Description: "The ID of the product being ordered, linking to the products table."},
				{Name: "quantity", Type: "INTEGER", Description: "The number of units of this product in the order (e.g., 2 for two items)."},
				{Name: "price", Type: "REAL", Description: "The price per unit of the product at the time of the order (e.g., 19.99)."},
				{Name: "discount", Type: "REAL", Description: "The discount applied to this item, if any, in the local currency (e.g., 2.00). Can be null."},
				{Name: "total", Type: "REAL", Description: "The total cost for this item after applying quantity and discount (e.g., 37.98)."},
			},
		},
	}
	return NewCatalog(tables, InferRelationships(tables), "retail")
}

// MovieCatalog returns the curated IMDB-style movie schema with its
// explicitly declared relationships.
func MovieCatalog() *Catalog {
	tables := []TableSchema{
		{
			Name: "name_basics",
			Columns: []ColumnSchema{
				{Name: "nconst", Type: "TEXT", Description: "Alphanumeric unique identifier for each person. Primary key for the name_basics table.", PrimaryKey: true},
				{Name: "primaryName", Type: "TEXT", Description: "Name by which the person is most often credited in films and TV shows."},
				{Name: "birthYear", Type: "INTEGER", Description: "Year of birth in YYYY format."},
				{Name: "deathYear", Type: "INTEGER", Description: "Year of death in YYYY format if applicable, NULL if still alive."},
				{Name: "primaryProfession", Type: "TEXT", Description: "The top-3 professions of the person as a comma-separated list (e.g., 'actor,director,producer')."},
				{Name: "knownForTitles", Type: "TEXT", Description: "Titles the person is known for as a comma-separated list of tconst identifiers."},
			},
		},
		{
			Name: "title_basics",
			Columns: []ColumnSchema{
				{Name: "tconst", Type: "TEXT", Description: "Alphanumeric unique identifier of the title. Primary key for the title_basics table.", PrimaryKey: true},
				{Name: "titleType", Type: "TEXT", Description: "The type/format of the title (e.g. movie, short, tvseries, tvepisode, video, etc)."},
				{Name: "primaryTitle", Type: "TEXT", Description: "The more popular title / the title used by the filmmakers on promotional materials at the point of release."},
				{Name: "originalTitle", Type: "TEXT", Description: "Original title, in the original language."},
				{Name: "isAdult", Type: "INTEGER", Description: "Boolean flag: 0 for non-adult title; 1 for adult title."},
				{Name: "startYear", Type: "INTEGER", Description: "Represents the release year of a title. In the case of TV Series, it is the series start year."},
				{Name: "endYear", Type: "INTEGER", Description: "TV Series end year. NULL for all other title types."},
				{Name: "runtimeMinutes", Type: "INTEGER", Description: "Primary runtime of the title, in minutes."},
				{Name: "genres", Type: "TEXT", Description: "Includes up to three genres associated with the title as a comma-separated list."},
			},
		},
		{
			Name: "title_ratings",
			Columns: []ColumnSchema{
				{Name: "tconst", Type: "TEXT", Description: "Alphanumeric unique identifier of the title, foreign key to title_basics."},
				{Name: "averageRating", Type: "REAL", Description: "Weighted average of all the individual user ratings."},
				{Name: "numVotes", Type: "INTEGER", Description: "Number of votes the title has received."},
			},
		},
		{
			Name: "title_crew",
			Columns: []ColumnSchema{
				{Name: "tconst", Type: "TEXT", Description: "Alphanumeric unique identifier of the title, foreign key to title_basics."},
				{Name: "directors", Type: "TEXT", Description: "Director(s) of the given title as a comma-separated list of nconst identifiers."},
				{Name: "writers", Type: "TEXT", Description: "Writer(s) of the given title as a comma-separated list of nconst identifiers."},
			},
		},
		{
			Name: "title_episode",
			Columns: []ColumnSchema{
				{Name: "tconst", Type: "TEXT", Description: "Alphanumeric identifier of episode, foreign key to title_basics."},
				{Name: "parentTconst", Type: "TEXT", Description: "Alphanumeric identifier of the parent TV Series, foreign key to title_basics."},
				{Name: "seasonNumber", Type: "INTEGER", Description: "Season number the episode belongs to."},
				{Name: "episodeNumber", Type: "INTEGER", Description: "Episode number of the tconst in the TV series."},
			},
		},
		{
			Name: "title_principals",
			Columns: []ColumnSchema{
				{Name: "tconst", Type: "TEXT", Description: "Alphanumeric unique identifier of the title, foreign key to title_basics."},
				{Name: "ordering", Type: "INTEGER", Description: "A number to uniquely identify rows for a given titleId."},
				{Name: "nconst", Type: "TEXT", Description: "Alphanumeric unique identifier of the name/person, foreign key to name_basics."},
				{Name: "category", Type: "TEXT", Description: "The category of job that person was in (e.g., actor, director)."},
				{Name: "job", Type: "TEXT", Description: "The specific job title if applicable, NULL otherwise."},
				{Name: "characters", Type: "TEXT", Description: "The name of the character played if applicable, NULL otherwise."},
			},
		},
		{
			Name: "title_akas",
			Columns: []ColumnSchema{
				{Name: "titleId", Type: "TEXT", Description: "Alphanumeric unique identifier of the title, foreign key to title_basics."},
				{Name: "ordering", Type: "INTEGER", Description: "A number to uniquely identify rows for a given titleId."},
				{Name: "title", Type: "TEXT", Description: "The localized title."},
				{Name: "region", Type: "TEXT", Description: "The region for this version of the title."},
				{Name: "language", Type: "TEXT", Description: "The language of the title."},
				{Name: "types", Type: "TEXT", Description: "Enumerated set of attributes for this alternative title as a comma-separated list."},
				{Name: "attributes", Type: "TEXT", Description: "Additional terms to describe this alternative title, not enumerated."},
				{Name: "isOriginalTitle", Type: "INTEGER", Description: "Boolean flag: 0 for not original title; 1 for original title."},
			},
		},
	}

	edges := []RelationshipEdge{
		{SourceTable: "title_ratings", SourceColumn: "tconst", TargetTable: "title_basics", TargetColumn: "tconst"},
		{SourceTable: "title_crew", SourceColumn: "tconst", TargetTable: "title_basics", TargetColumn: "tconst"},
		{SourceTable: "title_episode", SourceColumn: "tconst", TargetTable: "title_basics", TargetColumn: "tconst"},
		{SourceTable: "title_episode", SourceColumn: "parentTconst", TargetTable: "title_basics", TargetColumn: "tconst"},
		{SourceTable: "title_principals", SourceColumn: "tconst", TargetTable: "title_basics", TargetColumn: "tconst"},
		{SourceTable: "title_principals", SourceColumn: "nconst", TargetTable: "name_basics", TargetColumn: "nconst"},
		{SourceTable: "title_akas", SourceColumn: "titleId", TargetTable: "title_basics", TargetColumn: "tconst"},
	}
	return NewCatalog(tables, edges, "movie")
}
