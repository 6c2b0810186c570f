package sqlinline

const QInsertNotification = `--sql e0d355e3-39d0-4e31-b477-37fbf5e279aa
insert into notifications (user_id, type, title, body, link, data)
values ($1::uuid, $2::text, $3::text, $4::text, $5::text, $6::jsonb)
returning id::text, created_at;
`

const QListNotifications = `--sql 4f729206-fda2-40a8-b29c-041791784344
select id::text, user_id::text, type, title, body, link, data, read_at, created_at
from notifications
where user_id = $1::uuid
  and (not $2::boolean or read_at is null)
order by created_at desc
limit nullif($3::int, 0) offset $4::int;
`

const QMarkNotificationRead = `--sql c95e7a01-9711-4c9a-80e9-18855607e981
update notifications
set read_at = coalesce(read_at, $3::timestamptz)
where id = $2::uuid
  and user_id = $1::uuid;
`

const QMarkAllNotificationsRead = `--sql 9039b825-805c-437b-bd1c-42aa32d8c468
update notifications
set read_at = $2::timestamptz
where user_id = $1::uuid
  and read_at is null;
`

const QCountUnreadNotifications = `--sql 670e35f3-a256-4456-bdf5-91357c50dace
select count(*)
from notifications
where user_id = $1::uuid
  and read_at is null;
`

const QNotificationExistsSince = `--sql 9b61e358-6797-407a-ae26-84c11d135735
select exists (
  select 1
  from notifications
  where user_id = $1::uuid
    and type = $2::text
    and data->>$3::text = $4::text
    and created_at >= $5::timestamptz
);
`

const QEnqueueEmail = `--sql dd4717d2-0a6f-4746-8fb0-7c81450010d1
insert into email_outbox (to_address, subject, html_body, text_body, status, send_after)
values ($1::text, $2::text, $3::text, $4::text, 'pending', coalesce($5::timestamptz, now()))
returning id::text, send_after, created_at;
`

const QClaimDueEmails = `--sql ab5fb750-ec74-403e-8fdd-b1b3e366d1a2
update email_outbox
set attempts = attempts + 1,
    send_after = $1::timestamptz + interval '5 minutes'
where id in (
  select id
  from email_outbox
  where status = 'pending'
    and send_after <= $1::timestamptz
  order by send_after
  limit $2::int
  for update skip locked
)
returning id::text, to_address, subject, html_body, text_body, status, attempts, last_error,
  send_after, sent_at, created_at;
`

const QMarkEmailSent = `--sql 875fa0dc-c418-4a67-9b24-a759bd2b3a52
update email_outbox
set status = 'sent', sent_at = $2::timestamptz, last_error = ''
where id = $1::uuid;
`

const QMarkEmailFailed = `--sql 9d8225ec-893f-48e3-b869-903be23f0445
update email_outbox
set status = case when $3::timestamptz is null then 'failed' else 'pending' end,
    last_error = $2::text,
    send_after = coalesce($3::timestamptz, send_after)
where id = $1::uuid;
`
