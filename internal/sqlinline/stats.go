package sqlinline

const QStatsUsersByRole = `--sql 4ed04035-1a90-49b3-90c9-770247ade3ac
select role, count(*)
from users
group by role;
`

const QStatsProjectsByStatus = `--sql ab2eeaa3-4aab-4575-b65d-530d8589417c
select status, count(*)
from projects
group by status;
`

const QStatsRevenueByCurrency = `--sql e666137b-9891-4e47-be26-bcfd457cffe8
select currency, count(*), coalesce(sum(amount_minor - discount_minor), 0)::bigint
from transactions
where status = 'paid'
group by currency;
`

const QStatsTotals = `--sql a132ffa2-d05b-491d-ac22-637aad3cc6ed
select
  (select count(*) from users where onboarding_completed) as onboarded,
  (select count(*) from users where banned) as banned,
  (select count(*) from users where created_at >= $1::timestamptz) as signups,
  (select count(*) from applications) as applications,
  (select count(*) from applications where status = 'completed') as completed,
  (select coalesce(sum((volunteer_profile->>'hours_contributed')::int), 0) from users where volunteer_profile is not null)::int as hours;
`
