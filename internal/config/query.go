package config

// DefaultQuery joins the sales fact table with its date and product
// dimensions into one row per transaction line.
const DefaultQuery = `SELECT
    f.customer_id    AS customer_id,
    f.transaction_id AS transaction_id,
    d.date           AS date,
    p.unit_price     AS unit_price,
    f.quantity       AS quantity
FROM sales_fact f
JOIN date d    ON f.date_id = d.date_id
JOIN product p ON f.product_id = p.product_id`
